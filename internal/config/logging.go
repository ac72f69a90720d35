package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

// diodeBufferSize is the number of pending log lines held before the async
// writer starts dropping.
const diodeBufferSize = 1000

// NewLogger builds the process-wide logger. Development (or LOG_FORMAT=console)
// gets a console writer; everything else writes JSON through a non-blocking
// diode. The returned func flushes buffered output and must be called on
// shutdown.
func NewLogger(cfg LoggingConfig, environment string) (zerolog.Logger, func() error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := parseLevel(cfg.Level)

	var (
		output io.Writer = os.Stdout
		closer           = func() error { return nil }
	)
	if useConsole(cfg, environment) {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(os.Stdout),
		}
	} else {
		w := diode.NewWriter(os.Stdout, diodeBufferSize, 10*time.Millisecond, func(missed int) {
			fmt.Fprintf(os.Stderr, "logger dropped %d messages\n", missed)
		})
		output = w
		closer = w.Close
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

// NewSlogLogger returns a slog logger at the configured level for libraries
// that only accept *slog.Logger.
func NewSlogLogger(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	switch parseLevel(cfg.Level) {
	case zerolog.DebugLevel:
		level = slog.LevelDebug
	case zerolog.WarnLevel:
		level = slog.LevelWarn
	case zerolog.ErrorLevel:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil || value == "" {
		return zerolog.InfoLevel
	}
	return level
}

func useConsole(cfg LoggingConfig, environment string) bool {
	switch strings.ToLower(cfg.Format) {
	case "console":
		return true
	case "json":
		return false
	}
	return environment == EnvDevelopment
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
