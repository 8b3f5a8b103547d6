package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/cronbeat/internal/config"
)

// NewLogger creates the diagnostic zerolog.Logger. It writes to stderr so that
// stdout carries only the one user-facing result line.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if host, err := os.Hostname(); err == nil {
		ctx = ctx.Str("host", host)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
