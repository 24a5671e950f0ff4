// Package logger provides the structured logging interface used by the chat
// server and client binaries, backed by zerolog. Output goes to stdout by
// default; the server can additionally append to a log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair for structured log output.
type Field struct {
	Key   string
	Value any
}

// Logger is an interface for structured logging at the usual levels, with
// support for deriving component- or session-scoped loggers via With.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a new Logger that includes the given fields in all
	// subsequent entries. The original Logger is unchanged.
	With(fields ...Field) Logger

	// Close releases resources held by the logger (e.g. a log file handle).
	// Safe to call multiple times.
	Close() error
}

// ParseLevel maps a config string to a zerolog level, defaulting to info for
// anything unrecognised.
//
// Parameters:
//   - level: One of "debug", "info", "warn", "error" (case-insensitive)
//
// Returns:
//   - The matching zerolog.Level, or zerolog.InfoLevel
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// New builds a Logger writing JSON entries to stdout, tagged with the service
// name and a timestamp and filtered by level.
//
// Parameters:
//   - serviceName: Name of the service, added as a field to every entry
//   - level: Minimum level to log
//
// Returns:
//   - A Logger writing to stdout
func New(serviceName string, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(os.Stdout).With().Str("service", serviceName).Timestamp().Logger().Level(level),
	}
}

// NewWithFile builds a Logger that writes to both stdout and an append-only
// log file at path.
//
// Parameters:
//   - serviceName: Name of the service, added as a field to every entry
//   - path: The log file to append to; created if missing
//   - level: Minimum level to log
//
// Returns:
//   - The Logger, or an error if the file could not be opened
func NewWithFile(serviceName, path string, level zerolog.Level) (Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	multi := io.MultiWriter(os.Stdout, file)
	return &zerologLogger{
		logger: zerolog.New(multi).With().Str("service", serviceName).Timestamp().Logger().Level(level),
		file:   file,
	}, nil
}

// Discard returns a Logger that drops everything. Useful as a default in
// tests and for components constructed without a logger.
func Discard() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

// Info implements Logger.
func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

// Error implements Logger.
func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

// With implements Logger.
func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger: z.logger.With().Fields(toMap(fields)).Logger(),
		file:   nil, // derived loggers never own the file handle
	}
}

// Close implements Logger.
func (z *zerologLogger) Close() error {
	if z.file != nil {
		err := z.file.Close()
		z.file = nil
		return err
	}

	return nil
}

// toMap converts a slice of Field into a map for zerolog.
func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}
