package socks

import (
	"errors"
	"net"
	"syscall"
	"time"
)

// dialTimeout bounds the upstream connect attempt; the source specifies no
// timeouts, but an implementer SHOULD add one so a dead upstream doesn't
// wedge a session forever (spec §5).
const dialTimeout = 15 * time.Second

// dial opens the upstream connection with the teacher's socket tuning
// (TCP_NODELAY, keepalive, SO_REUSEADDR) applied via Control, generalized
// from a single fixed outbound IPv6 to whatever endpoint the request
// resolves to.
func (s *Server) dial(network, address string) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
		Control:   setSocketOptions,
	}
	return d.Dial(network, address)
}

// mapDialErrorSyscall maps a dial failure to the nearest SOCKS5 reply code
// (spec §7's "Upstream" error category).
func mapDialErrorSyscall(err error) ReplyCode {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ReplyConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH):
		return ReplyNetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH):
		return ReplyHostUnreachable
	default:
		return ReplyGeneralFailure
	}
}
