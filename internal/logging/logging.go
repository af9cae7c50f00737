package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger. Level comes from LOG_LEVEL; the
// default only shows warnings and errors so the CLI screen stays clean.
func New() zerolog.Logger {
	level := zerolog.WarnLevel

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = zerolog.DebugLevel
		case "info":
			level = zerolog.InfoLevel
		case "warn", "warning":
			level = zerolog.WarnLevel
		case "error", "production", "prod":
			level = zerolog.ErrorLevel
		}
	}

	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
