package socks

import (
	"net"
	"strconv"

	"go.uber.org/zap"
)

// runSocks4 drives the SOCKS4 branch of the state machine: ReadSocks4Hdr ->
// Socks4Dispatch -> {Socks4Connect, Socks4Bind, Socks4Reject} (spec §4.2).
func (sess *Session) runSocks4() error {
	var req *Socks4Request
	err := sess.readFrame(func(buf []byte) (int, error) {
		r, consumed, err := DecodeSocks4Request(buf)
		if err == nil {
			req = r
		}
		return consumed, err
	})
	if err != nil {
		return err
	}

	switch req.Command {
	case Socks4Connect:
		return sess.socks4Connect(req)
	case Socks4Bind:
		return sess.socks4Bind(req)
	default:
		return sess.socks4Reject()
	}
}

func (sess *Session) socks4Reject() error {
	sess.writeSocks4Reply(Socks4Rejected, 0, nil)
	return errSessionDone
}

func (sess *Session) socks4Connect(req *Socks4Request) error {
	decision := sess.server.Access.CheckAccess(sess.down.RemoteAddr(), req.User, req.IP.String(), req.Port)
	if !decision.Allow {
		sess.writeSocks4Reply(Socks4Rejected, 0, nil)
		sess.server.logger.Info("access_denied",
			zap.String("session", sess.id.String()), zap.String("reason", decision.Reason))
		return errSessionDone
	}

	target := net.JoinHostPort(req.IP.String(), strconv.Itoa(int(req.Port)))
	up, err := sess.server.dial("tcp", target)
	if err != nil {
		sess.writeSocks4Reply(Socks4Rejected, 0, nil)
		return err
	}
	sess.up = up

	// Granted reply echoes the request's own port with a zeroed address,
	// not the outbound socket's ephemeral local port (ground truth: a
	// CONNECT reply never reports the dialer's bound address).
	sess.writeSocks4Reply(Socks4Granted, req.Port, net.IPv4zero)

	sess.server.logger.Info("connect",
		zap.String("session", sess.id.String()), zap.String("remote", target), zap.String("phase", "relay"))

	return sess.relay()
}

// socks4Bind implements the legacy SOCKS4 BIND command: bind a fresh
// ephemeral acceptor, report its address in the response, accept exactly
// one connection as the upstream endpoint. A second confirmation reply
// (as classic SOCKS4 BIND sends) is not required by spec §4.2 and is not
// implemented here.
func (sess *Session) socks4Bind(req *Socks4Request) error {
	decision := sess.server.Access.CheckAccess(sess.down.RemoteAddr(), req.User, req.IP.String(), req.Port)
	if !decision.Allow {
		sess.writeSocks4Reply(Socks4Rejected, 0, nil)
		return errSessionDone
	}

	ln, err := net.Listen("tcp4", "0.0.0.0:0")
	if err != nil {
		sess.writeSocks4Reply(Socks4Rejected, 0, nil)
		return err
	}
	defer ln.Close()

	bound := ln.Addr().(*net.TCPAddr)
	sess.writeSocks4Reply(Socks4Granted, uint16(bound.Port), bound.IP)

	up, err := ln.Accept()
	if err != nil {
		return err
	}
	sess.up = up

	return sess.relay()
}

func (sess *Session) writeSocks4Reply(status Socks4Status, port uint16, ip net.IP) {
	if ip == nil {
		ip = net.IPv4zero
	}
	frame := EncodeSocks4Reply(&Socks4Reply{Status: status, Port: port, IP: ip})
	sess.down.Write(frame)
}
