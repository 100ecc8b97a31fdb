package socks

import "fmt"

// ErrShortBuffer is returned by a decode function when buf does not yet hold
// a complete frame. Needed is the minimum number of additional bytes the
// caller should read before retrying the decode; it is a lower bound, not an
// exact figure, since some frames (SOCKS5 DOMAIN) only reveal their true
// length once more bytes arrive.
type ErrShortBuffer struct {
	Needed int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("socks: short buffer, need %d more byte(s)", e.Needed)
}

// MalformedError reports a frame that can never be completed by reading
// more bytes: a bad version, an out-of-range field, or a missing
// terminator within the accepted bound.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "socks: malformed frame: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

func shortBuffer(needed int) error {
	return &ErrShortBuffer{Needed: needed}
}
