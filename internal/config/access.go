package config

import (
	"fmt"
	"net"

	"socksd/internal/socks"
)

// CIDRAccess is an socks.Access implementation backed by a listener's
// static allow-list. It is the one concrete realization the specification
// calls for of the otherwise-unspecified CheckAccess hook (spec §1, §4.2).
type CIDRAccess struct {
	nets []*net.IPNet
	ips  []net.IP
}

// NewCIDRAccess builds a CIDRAccess from a listener's Allow entries. An
// empty list allows everything.
func NewCIDRAccess(entries []string) (*CIDRAccess, error) {
	a := &CIDRAccess{}
	for _, entry := range entries {
		if ip := net.ParseIP(entry); ip != nil {
			a.ips = append(a.ips, ip)
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("access: invalid entry %q: %w", entry, err)
		}
		a.nets = append(a.nets, n)
	}
	return a, nil
}

func (a *CIDRAccess) CheckAccess(clientAddr net.Addr, user string, target string, port uint16) socks.Decision {
	if len(a.ips) == 0 && len(a.nets) == 0 {
		return socks.Decision{Allow: true}
	}

	host, _, err := net.SplitHostPort(clientAddr.String())
	if err != nil {
		host = clientAddr.String()
	}
	client := net.ParseIP(host)
	if client == nil {
		return socks.Decision{Allow: false, Reason: "unparseable client address"}
	}

	for _, ip := range a.ips {
		if ip.Equal(client) {
			return socks.Decision{Allow: true}
		}
	}
	for _, n := range a.nets {
		if n.Contains(client) {
			return socks.Decision{Allow: true}
		}
	}
	return socks.Decision{Allow: false, Reason: "client not in allow-list"}
}
