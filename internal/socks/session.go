package socks

import (
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version selects which dialect a Server speaks. A server instance is
// dedicated to a single version, selected at construction (spec §2).
type Version int

const (
	V4 Version = 4
	V5 Version = 5
)

func (v Version) String() string {
	if v == V4 {
		return "4"
	}
	return "5"
}

// Session is the per-connection protocol engine: one instance per accepted
// downstream connection, owning the downstream and upstream endpoints and
// a pair of fixed relay buffers (spec §3).
//
// The original source's "shared-lifetime-with-callbacks" pattern (a strong
// self-reference kept alive by every in-flight async callback) has no
// analogue here: sess.run is a single goroutine that blocks through every
// suspension point in sequence, so the session's lifetime is exactly the
// goroutine's lifetime (design notes §9).
type Session struct {
	id     uuid.UUID
	server *Server

	down net.Conn
	up   net.Conn

	downBuf [4096]byte
	upBuf   [4096]byte
	downN   int // downstream_bytes_read: valid bytes buffered from a partial frame

	closeOnce sync.Once
}

func newSession(s *Server, down net.Conn) *Session {
	return &Session{
		id:     uuid.New(),
		server: s,
		down:   down,
	}
}

// run drives the session from Start through Relay or Closed (spec §4.2) and
// is the single task that replaces the callback-chain reference counting of
// the original source.
func (sess *Session) run() {
	defer sess.close()

	sess.server.metrics.SessionStarted()

	var err error
	switch sess.server.Version {
	case V4:
		err = sess.runSocks4()
	case V5:
		err = sess.runSocks5()
	}

	result := "closed"
	reason := ""
	if err != nil && !errors.Is(err, errSessionDone) {
		result = "error"
		reason = err.Error()
	}
	sess.server.logger.Info("session_end",
		zap.String("session", sess.id.String()),
		zap.String("local", addrString(sess.down.LocalAddr())),
		zap.String("remote", addrString(sess.down.RemoteAddr())),
		zap.String("result", result),
		zap.String("reason", reason),
	)
	sess.server.metrics.SessionEnded(sess.server.Version.String(), result)
}

// close closes both endpoints exactly once; further calls are no-ops
// (spec §3 invariant).
func (sess *Session) close() {
	sess.closeOnce.Do(func() {
		sess.down.Close()
		if sess.up != nil {
			sess.up.Close()
		}
	})
}

// errSessionDone marks a clean, already-logged termination (EOF on the
// relay, a rejected/denied reply already written) so run doesn't report it
// as an error.
var errSessionDone = errors.New("socks: session done")

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// readFrame accumulates bytes from the downstream connection into
// sess.downBuf, calling decode after every read, until decode succeeds or
// reports a failure that reading more bytes cannot fix. It implements the
// "read into the tail of its buffer, track downstream_bytes_read" behavior
// of spec §4.2 without assuming a whole frame arrives in one syscall.
func (sess *Session) readFrame(decode func(buf []byte) (consumed int, err error)) error {
	for {
		consumed, err := decode(sess.downBuf[:sess.downN])
		if err == nil {
			remaining := sess.downN - consumed
			copy(sess.downBuf[0:remaining], sess.downBuf[consumed:sess.downN])
			sess.downN = remaining
			return nil
		}

		var short *ErrShortBuffer
		if !errors.As(err, &short) {
			return err
		}
		if sess.downN >= len(sess.downBuf) {
			return malformed("frame exceeds %d byte buffer", len(sess.downBuf))
		}

		n, rerr := sess.down.Read(sess.downBuf[sess.downN:])
		if n > 0 {
			sess.downN += n
		}
		if rerr != nil {
			return rerr
		}
	}
}

func atypeFor(ip net.IP) AddressType {
	if v4 := ip.To4(); v4 != nil {
		return ATypIPv4
	}
	return ATypIPv6
}
