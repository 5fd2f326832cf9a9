package utils

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the application logger. Development gets the console
// writer; anything else logs JSON to stdout.
func NewLogger(environment string) zerolog.Logger {
	if environment == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}
