package socks

import (
	"context"
	"errors"
	"net"
	"strconv"

	"go.uber.org/zap"
)

var errNoAcceptableMethod = errors.New("socks: no acceptable authentication method")

// runSocks5 drives the SOCKS5 branch: ReadMethodReq -> WriteMethodResp ->
// ReadReq5 -> Dispatch5 -> {Connect5Resolve, Connect5Dial, Reply} (spec
// §4.2). Only the no-auth method is realized; BIND and UDP_ASSOCIATE reply
// command_not_supported.
func (sess *Session) runSocks5() error {
	var methodReq *MethodRequest
	err := sess.readFrame(func(buf []byte) (int, error) {
		r, consumed, err := DecodeMethodRequest(buf)
		if err == nil {
			methodReq = r
		}
		return consumed, err
	})
	if err != nil {
		return err
	}

	hasNoAuth := false
	for _, m := range methodReq.Methods {
		if m == MethodNoAuth {
			hasNoAuth = true
			break
		}
	}
	if !hasNoAuth {
		sess.down.Write(EncodeMethodReply(&MethodReply{Method: MethodNoAcceptable}))
		return errNoAcceptableMethod
	}
	if _, err := sess.down.Write(EncodeMethodReply(&MethodReply{Method: MethodNoAuth})); err != nil {
		return err
	}

	var req *Request
	err = sess.readFrame(func(buf []byte) (int, error) {
		r, consumed, err := DecodeRequest(buf)
		if err == nil {
			req = r
		}
		return consumed, err
	})
	if err != nil {
		var uat *UnsupportedAddressTypeError
		if errors.As(err, &uat) {
			sess.writeSocks5Reply(ReplyAddressTypeNotSupported, Address{})
			return err
		}
		return err
	}

	switch req.Command {
	case CmdConnect:
		return sess.socks5Connect(req)
	default:
		sess.writeSocks5Reply(ReplyCommandNotSupported, req.Address)
		return errSessionDone
	}
}

func (sess *Session) socks5Connect(req *Request) error {
	decision := sess.server.Access.CheckAccess(sess.down.RemoteAddr(), "", addressHost(req.Address), req.Address.Port)
	if !decision.Allow {
		sess.writeSocks5Reply(ReplyConnectionNotAllowed, req.Address)
		sess.server.logger.Info("access_denied",
			zap.String("session", sess.id.String()), zap.String("reason", decision.Reason))
		return errSessionDone
	}

	ip := req.Address.IP
	if req.Address.Type == ATypDomain {
		resolved, err := sess.server.resolver().LookupIP(context.Background(), "ip", req.Address.Domain)
		if err != nil {
			sess.writeSocks5Reply(ReplyGeneralFailure, req.Address)
			return err
		}
		if len(resolved) == 0 {
			sess.writeSocks5Reply(ReplyGeneralFailure, req.Address)
			return errSessionDone
		}
		ip = resolved[0] // first resolved endpoint; no happy-eyeballs (spec §4.2)
	}

	target := net.JoinHostPort(ip.String(), strconv.Itoa(int(req.Address.Port)))
	up, err := sess.server.dial("tcp", target)
	if err != nil {
		sess.writeSocks5Reply(mapDialError(err), req.Address)
		return err
	}
	sess.up = up

	// Granted reply carries only the atype; the ground truth zero-fills
	// address and port unconditionally rather than reporting the outbound
	// socket's ephemeral local endpoint.
	bound := up.LocalAddr().(*net.TCPAddr)
	sess.writeSocks5Reply(ReplySucceeded, Address{Type: atypeFor(bound.IP)})

	sess.server.logger.Info("connect",
		zap.String("session", sess.id.String()), zap.String("remote", target), zap.String("phase", "relay"))

	return sess.relay()
}

func (sess *Session) writeSocks5Reply(code ReplyCode, addr Address) {
	frame := EncodeReply(&Reply{Reply: code, Address: addr})
	sess.down.Write(frame)
}

func addressHost(a Address) string {
	if a.Type == ATypDomain {
		return a.Domain
	}
	if a.IP != nil {
		return a.IP.String()
	}
	return ""
}

func mapDialError(err error) ReplyCode {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ReplyTTLExpired
		}
	}
	switch {
	case errors.Is(err, net.ErrClosed):
		return ReplyGeneralFailure
	default:
		return mapDialErrorSyscall(err)
	}
}
