package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the root logger. Development gets a human-readable console writer;
// everything else logs JSON. The result is also installed as the global logger.
func New(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "otp-gate").Logger()
	log.Logger = l
	return l
}
