// Package logger builds the zerolog logger of the rqlapi command.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

/*
Logger writing to stderr: human-readable console output in development, JSON
lines otherwise.
*/
func New(level string, dev bool) (zerolog.Logger, error) {
	return NewWriter(os.Stderr, level, dev)
}

// Same as `New` with a custom output.
func NewWriter(out io.Writer, level string, dev bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf(`[logger] %w`, err)
	}

	if dev {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
