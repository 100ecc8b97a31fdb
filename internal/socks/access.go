package socks

import "net"

// Decision is the outcome of an access check.
type Decision struct {
	Allow  bool
	Reason string
}

// Access is the only policy surface the engine calls into. The recommended
// contract per the design notes: CheckAccess(client, user, target, port).
// SOCKS4 callers map a denial to Socks4Rejected; SOCKS5 callers map it to
// ReplyConnectionNotAllowed.
type Access interface {
	CheckAccess(clientAddr net.Addr, user string, target string, port uint16) Decision
}

// AllowAll is the default Access implementation: it grants everything.
type AllowAll struct{}

func (AllowAll) CheckAccess(net.Addr, string, string, uint16) Decision {
	return Decision{Allow: true}
}
