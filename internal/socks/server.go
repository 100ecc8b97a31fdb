// Package socks implements the SOCKS4/SOCKS5 wire codec, the per-connection
// session engine, and the acceptor loop described in the specification.
package socks

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"

	"socksd/internal/logging"
	"socksd/internal/metrics"
)

// Server owns the listening endpoint for one SOCKS version (spec §4.4). One
// acceptor per server instance; the version is fixed at construction.
type Server struct {
	Version  Version
	Access   Access
	Resolver *net.Resolver

	logger  logging.Logger
	metrics metrics.Sink
}

// Option configures a Server at construction.
type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithMetrics(m metrics.Sink) Option {
	return func(s *Server) { s.metrics = m }
}

func WithAccess(a Access) Option {
	return func(s *Server) { s.Access = a }
}

// NewServer builds a Server for the given version with sane defaults: a
// no-op logger, a no-op metrics sink, and an allow-all access policy. Each
// can be overridden with an Option.
func NewServer(version Version, opts ...Option) *Server {
	s := &Server{
		Version: version,
		Access:  AllowAll{},
		logger:  logging.Noop{},
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) resolver() *net.Resolver {
	if s.Resolver != nil {
		return s.Resolver
	}
	return net.DefaultResolver
}

// Serve runs the acceptor loop: accept a connection, hand it to a new
// Session, immediately post the next accept (spec §4.4). It returns when ln
// is closed, which happens automatically when ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept", zap.Error(err))
			continue
		}

		sess := newSession(s, conn)
		go sess.run()
	}
}

// ListenAndServe binds addr (e.g. "0.0.0.0:1080") and runs Serve on it.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
