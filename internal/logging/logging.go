// Package logging defines the logger capability used across the publish
// pipeline and builds the zap logger used by the CLI.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the minimal structured logging capability the pipeline needs.
// Key/value pairs follow the slog convention, so *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// zapLogger adapts a zap sugared logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// FromZap wraps a zap logger. A nil logger yields Nop.
func FromZap(l *zap.Logger) Logger {
	if l == nil {
		return Nop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Info(msg string, kv ...any)  { z.s.Infow(msg, kv...) }
func (z *zapLogger) Warn(msg string, kv ...any)  { z.s.Warnw(msg, kv...) }
func (z *zapLogger) Error(msg string, kv ...any) { z.s.Errorw(msg, kv...) }

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// Compile-time interface checks.
var (
	_ Logger = nopLogger{}
	_ Logger = (*zapLogger)(nil)
)
