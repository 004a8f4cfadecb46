// Package logger builds the zerolog logger shared by the bridge components.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the logger's format and verbosity.
type Config struct {
	Level       string
	Development bool
}

// New returns a console logger in development and a JSON logger otherwise.
// An empty level means info.
func New(cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return zerolog.Nop(), err
		}
		level = parsed
	}

	if cfg.Development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// WithComponent tags every event from l with the component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
