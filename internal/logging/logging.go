package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger configured for stdout.
func New() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// NewWithFile returns a logger writing to stdout and appending to the given
// file. supervisord captures stdout; operators tail the file. On open failure
// the stdout-only logger is returned alongside the error so callers can keep
// going.
func NewWithFile(path string) (zerolog.Logger, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return New(), err
	}
	w := io.MultiWriter(os.Stdout, f)
	return zerolog.New(w).With().Timestamp().Logger(), nil
}
