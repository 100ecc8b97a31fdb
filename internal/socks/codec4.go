package socks

import (
	"encoding/binary"
	"net"
)

// SOCKS4 constants (no RFC; de-facto protocol, see SOCKS4.protocol).
const (
	Version4 byte = 0x04

	// maxUserLen bounds the SOCKS4 user field. The original protocol
	// reads until a NUL with no cap; a frame whose user field exceeds
	// this is treated as malformed rather than read forever.
	maxUserLen = 256
)

// Socks4Command is the CD field of a SOCKS4 request.
type Socks4Command byte

const (
	Socks4Connect Socks4Command = 0x01
	Socks4Bind    Socks4Command = 0x02
)

// Socks4Status is the CD field of a SOCKS4 reply.
type Socks4Status byte

const (
	Socks4Granted                    Socks4Status = 0x5A
	Socks4Rejected                   Socks4Status = 0x5B
	Socks4RejectedIdentdNoConnection Socks4Status = 0x5C
	Socks4RejectedIdentdMismatch     Socks4Status = 0x5D
)

// Socks4Request is the decoded form of a SOCKS4 CONNECT/BIND request:
// ver(1) | cmd(1) | port(2) | addr(4) | user(variable) | 0x00
type Socks4Request struct {
	Command Socks4Command
	Port    uint16
	IP      net.IP // 4-byte IPv4
	User    string
}

// Socks4Reply is the fixed 8-byte SOCKS4 response frame:
// ver(1)=0x00 | status(1) | port(2) | addr(4)
type Socks4Reply struct {
	Status Socks4Status
	Port   uint16
	IP     net.IP
}

// DecodeSocks4Request parses buf as a SOCKS4 request. It returns the decoded
// request and the number of bytes consumed, an *ErrShortBuffer if buf does
// not yet hold a complete frame, or a *MalformedError if it never will.
func DecodeSocks4Request(buf []byte) (*Socks4Request, int, error) {
	const hdrLen = 8
	if len(buf) < hdrLen {
		return nil, 0, shortBuffer(hdrLen - len(buf))
	}
	if buf[0] != Version4 {
		return nil, 0, malformed("bad version %d", buf[0])
	}

	nul := -1
	limit := hdrLen + maxUserLen + 1
	if limit > len(buf) {
		limit = len(buf)
	}
	for i := hdrLen; i < limit; i++ {
		if buf[i] == 0x00 {
			nul = i
			break
		}
	}
	if nul < 0 {
		if len(buf) < hdrLen+maxUserLen+1 {
			return nil, 0, shortBuffer(1)
		}
		return nil, 0, malformed("user field exceeds %d bytes with no terminator", maxUserLen)
	}

	req := &Socks4Request{
		Command: Socks4Command(buf[1]),
		Port:    binary.BigEndian.Uint16(buf[2:4]),
		IP:      net.IPv4(buf[4], buf[5], buf[6], buf[7]),
		User:    string(buf[hdrLen:nul]),
	}
	return req, nul + 1, nil
}

// EncodeSocks4Request is the inverse of DecodeSocks4Request.
func EncodeSocks4Request(req *Socks4Request) []byte {
	v4 := req.IP.To4()
	buf := make([]byte, 8+len(req.User)+1)
	buf[0] = Version4
	buf[1] = byte(req.Command)
	binary.BigEndian.PutUint16(buf[2:4], req.Port)
	copy(buf[4:8], v4)
	copy(buf[8:], req.User)
	// trailing byte is already zero
	return buf
}

// DecodeSocks4Reply parses the fixed 8-byte SOCKS4 reply frame.
func DecodeSocks4Reply(buf []byte) (*Socks4Reply, int, error) {
	const replyLen = 8
	if len(buf) < replyLen {
		return nil, 0, shortBuffer(replyLen - len(buf))
	}
	return &Socks4Reply{
		Status: Socks4Status(buf[1]),
		Port:   binary.BigEndian.Uint16(buf[2:4]),
		IP:     net.IPv4(buf[4], buf[5], buf[6], buf[7]),
	}, replyLen, nil
}

// EncodeSocks4Reply is the inverse of DecodeSocks4Reply.
func EncodeSocks4Reply(rep *Socks4Reply) []byte {
	buf := make([]byte, 8)
	buf[0] = 0x00
	buf[1] = byte(rep.Status)
	binary.BigEndian.PutUint16(buf[2:4], rep.Port)
	if v4 := rep.IP.To4(); v4 != nil {
		copy(buf[4:8], v4)
	}
	return buf
}
