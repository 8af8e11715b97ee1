// Package logger provides the leveled, printf-style logger used across gows.
//
// It is a thin layer over zerolog so that components only depend on Interface
// and tests can silence them with Nop.
package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Interface is the logging contract accepted by gows components.
type Interface interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// With returns a logger that adds key=value to every entry.
	With(key string, value any) Interface
}

// Logger implements Interface on top of a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

var _ Interface = (*Logger)(nil)

// New creates a console logger writing to w at the given level
// ("debug", "info", "warn", "error", ...).
//
// It returns an error if the level is unknown.
func New(level string, w io.Writer) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}, nil
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Debug logs a formatted message at debug level.
func (l *Logger) Debug(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }

// Info logs a formatted message at info level.
func (l *Logger) Info(format string, args ...any) { l.zl.Info().Msgf(format, args...) }

// Warn logs a formatted message at warn level.
func (l *Logger) Warn(format string, args ...any) { l.zl.Warn().Msgf(format, args...) }

// Error logs a formatted message at error level.
func (l *Logger) Error(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

// With returns a child logger carrying key=value.
func (l *Logger) With(key string, value any) Interface {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}
