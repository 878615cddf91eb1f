package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted by Config.
const (
	LevelNone   = "none"
	LevelNormal = "normal"
	LevelDebug  = "debug"
)

// ErrInvalidLevel indicates an unknown level or mode in Config.
var ErrInvalidLevel = errors.New("invalid logging level")

// Config describes console and optional file logging.
type Config struct {
	Level       string `yaml:"level"`       // none, normal, debug (default: normal)
	Destination string `yaml:"destination"` // optional log file
	Mode        string `yaml:"mode"`        // append, overwrite (default: append)
}

// Validate checks level and mode values.
func (c Config) Validate() error {
	switch c.Level {
	case "", LevelNone, LevelNormal, LevelDebug:
	default:
		return fmt.Errorf("%w: %q (must be none, normal, or debug)", ErrInvalidLevel, c.Level)
	}
	switch c.Mode {
	case "", "append", "overwrite":
	default:
		return fmt.Errorf("%w: mode %q (must be append or overwrite)", ErrInvalidLevel, c.Mode)
	}
	return nil
}

// New builds a zap logger writing info/debug to stdout and errors to stderr,
// plus an optional file core. The returned close func releases the file.
func New(cfg Config, stdout, stderr io.Writer) (*zap.Logger, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewConsoleEncoder(ec)

	high := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var lowCore, highCore zapcore.Core
	switch cfg.Level {
	case LevelNone:
		lowCore = zapcore.NewNopCore()
		highCore = zapcore.NewNopCore()
	case LevelDebug:
		lowCore = zapcore.NewCore(console, zapcore.AddSync(stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.DebugLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		highCore = zapcore.NewCore(console, zapcore.AddSync(stderr), high)
	default:
		lowCore = zapcore.NewCore(console, zapcore.AddSync(stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.InfoLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		highCore = zapcore.NewCore(console, zapcore.AddSync(stderr), high)
	}

	fileCore := zapcore.NewNopCore()
	closeFn := func() error { return nil }
	if cfg.Destination != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.Mode == "overwrite" {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		f, err := os.OpenFile(cfg.Destination, flags, 0o600) // #nosec G304 -- log path is user-provided
		if err != nil {
			return nil, nil, fmt.Errorf("opening log destination %s: %w", cfg.Destination, err)
		}
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if cfg.Level == LevelDebug {
			level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		fileCore = zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), level)
		closeFn = f.Close
	}

	return zap.New(zapcore.NewTee(highCore, lowCore, fileCore)).Named("mdpublish"), closeFn, nil
}
