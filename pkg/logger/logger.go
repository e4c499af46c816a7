// Package logger builds the root zerolog logger every ForecastDesk component
// derives its child loggers from.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string    // Any zerolog level name; unknown values fall back to info
	Pretty bool      // Console output for dev mode, JSON otherwise
	Output io.Writer // Defaults to os.Stdout
}

// New creates the root logger. The level applies both to the returned logger
// and globally, so child loggers split off with With() inherit it. An
// unrecognized level name falls back to info and is reported on the new
// logger rather than silently swallowed.
func New(cfg Config) zerolog.Logger {
	level, parseErr := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	if parseErr != nil {
		logger.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
	}
	return logger
}

// SetGlobalLogger sets the package-level logger
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
