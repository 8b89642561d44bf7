package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger. level is a zerolog level name; unknown
// values fall back to info.
func New(env, level string) zerolog.Logger {
	// For Google Cloud Logging, the level field name should be "severity".
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Use ConsoleWriter for local development for more readable logs.
	if env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
