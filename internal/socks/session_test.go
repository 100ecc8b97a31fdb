package socks

import (
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startEcho starts a TCP echo listener and returns its address.
func startEcho(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(conn, conn)
		}
	}()
	return ln.Addr().String()
}

func runSession(t *testing.T, version Version) (down net.Conn) {
	t.Helper()
	client, serverSide := net.Pipe()
	t.Cleanup(func() { client.Close() })

	srv := NewServer(version)
	sess := newSession(srv, serverSide)
	go sess.run()
	return client
}

func TestSocks4Connect_ThenEcho(t *testing.T) {
	echoAddr := startEcho(t)
	_, portStr, err := net.SplitHostPort(echoAddr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client := runSession(t, V4)

	req := []byte{0x04, 0x01, byte(port >> 8), byte(port), 127, 0, 0, 1, 0x00}
	_, err = client.Write(req)
	require.NoError(t, err)

	reply := make([]byte, 8)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, byte(0x00), reply[0])
	require.Equal(t, byte(0x5A), reply[1])
	require.Equal(t, byte(port>>8), reply[2])
	require.Equal(t, byte(port), reply[3])

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	echoed := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(client, echoed)
	require.NoError(t, err)
	require.Equal(t, "ping", string(echoed))
}

func TestSocks4_UnknownCommand_Rejected(t *testing.T) {
	client := runSession(t, V4)

	req := []byte{0x04, 0x03, 0x00, 0x50, 127, 0, 0, 1, 0x00}
	_, err := client.Write(req)
	require.NoError(t, err)

	reply := make([]byte, 8)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, byte(0x5B), reply[1])
}

func TestSocks5MethodNegotiation_NoAuthOffered(t *testing.T) {
	client := runSession(t, V5)

	_, err := client.Write([]byte{0x05, 0x01, 0x00})
	require.NoError(t, err)

	reply := make([]byte, 2)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x00}, reply)
}

func TestSocks5MethodNegotiation_OnlyGSSAPI(t *testing.T) {
	client := runSession(t, V5)

	_, err := client.Write([]byte{0x05, 0x01, 0x01})
	require.NoError(t, err)

	reply := make([]byte, 2)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0xFF}, reply)

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, err = client.Read(make([]byte, 1))
	require.Error(t, err) // connection closed
}

func TestSocks5Connect_IPv4(t *testing.T) {
	client := runSession(t, V5)

	_, err := client.Write([]byte{0x05, 0x01, 0x00})
	require.NoError(t, err)
	methodReply := make([]byte, 2)
	_, err = io.ReadFull(client, methodReply)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x00}, methodReply)

	echoAddr := startEcho(t)
	ip, portStr, err := net.SplitHostPort(echoAddr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	req := []byte{0x05, 0x01, 0x00, 0x01}
	req = append(req, net.ParseIP(ip).To4()...)
	portBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(portBuf, uint16(port))
	req = append(req, portBuf...)
	_, err = client.Write(req)
	require.NoError(t, err)

	reply := make([]byte, 10)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.Equal(t, byte(0x05), reply[0])
	require.Equal(t, byte(0x00), reply[1])
	require.Equal(t, byte(0x01), reply[3])
}

func TestSocks5Connect_DomainResolveFailure(t *testing.T) {
	client := runSession(t, V5)

	_, err := client.Write([]byte{0x05, 0x01, 0x00})
	require.NoError(t, err)
	methodReply := make([]byte, 2)
	_, err = io.ReadFull(client, methodReply)
	require.NoError(t, err)

	domain := "this-domain-should-not-resolve.invalid"
	req := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
	req = append(req, []byte(domain)...)
	req = append(req, 0x00, 0x50)
	_, err = client.Write(req)
	require.NoError(t, err)

	header := make([]byte, 5+len(domain)+2)
	_, err = io.ReadFull(client, header)
	require.NoError(t, err)
	require.Equal(t, byte(0x05), header[0])
	require.Equal(t, byte(0x01), header[1]) // general_socks_server_failure
	require.Equal(t, byte(0x03), header[3])
	require.Equal(t, byte(len(domain)), header[4])
	for _, b := range header[5:] {
		require.Equal(t, byte(0), b)
	}
}

