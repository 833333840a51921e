// Package logger builds the zerolog logger shared across driftd.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects log level and output format.
type Config struct {
	Level  string // debug, info, warn, error; anything else falls back to info
	Pretty bool   // human-readable console output for dev mode
}

// New builds the root logger. Production output is JSON on stdout; dev mode
// swaps in a console writer with short timestamps.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger replaces zerolog's package-level logger so code using
// log.Logger directly shares the configured output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
