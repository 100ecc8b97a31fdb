// Package logging wires a structured logger into the server and its
// sessions (dependency injection), replacing the global logging singleton
// the original source used (see design notes).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the sink the acceptor and session engine emit events to.
// Event keys are advisory (spec §6): session, local, remote, bytes,
// direction, phase, reason.
type Logger interface {
	Info(event string, fields ...zap.Field)
	Error(event string, fields ...zap.Field)
	Sync() error
}

type zapLogger struct {
	l *zap.Logger
}

// New builds a Logger backed by zap. level is parsed with
// zapcore.ParseLevel; an empty string defaults to "info".
func New(level string) (Logger, error) {
	if level == "" {
		level = "info"
	}
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l}, nil
}

func (z *zapLogger) Info(event string, fields ...zap.Field) {
	z.l.Info(event, fields...)
}

func (z *zapLogger) Error(event string, fields ...zap.Field) {
	z.l.Error(event, fields...)
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}

// Noop is a Logger that discards every event; it is the default used by
// unit tests so they never depend on a live zap core.
type Noop struct{}

func (Noop) Info(string, ...zap.Field)  {}
func (Noop) Error(string, ...zap.Field) {}
func (Noop) Sync() error                { return nil }
