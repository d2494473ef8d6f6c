// Package logging provides structured diagnostic logging for the
// evidence-verifier CLI host. Verification logic itself never depends on
// this package for control flow — only the CLI and the optional metrics
// wiring use it — keeping pkg/verify free of side effects (spec §5).
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/certen/safe-evidence-verifier/pkg/verrors"
)

// Logger wraps slog.Logger with a couple of domain-specific helpers.
type Logger struct {
	*slog.Logger
	config *Config
}

// Config controls the logger's handler and verbosity.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", or a file path
	AddSource bool
}

// Field is a single structured log attribute.
type Field struct {
	Key   string
	Value interface{}
}

// DefaultConfig returns the baseline configuration: info level, text
// output to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: "stdout",
	}
}

// New creates a Logger from the given configuration.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = file
	}

	opts := &slog.HandlerOptions{Level: config.Level, AddSource: config.AddSource}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(handler), config: config}, nil
}

// LevelFromString parses "debug"/"info"/"warn"/"error" into a slog.Level,
// defaulting to Info on anything else.
func LevelFromString(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger annotated with a component name, e.g.
// "mpt", "signature", "trust".
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component), config: l.config}
}

// WithReportID returns a logger annotated with a verification report's
// correlation ID.
func (l *Logger) WithReportID(reportID string) *Logger {
	return &Logger{Logger: l.Logger.With("report_id", reportID), config: l.config}
}

// WithVerror returns a logger annotated with a structured verrors.Error,
// surfacing its closed Code alongside the free-form message.
func (l *Logger) WithVerror(err *verrors.Error) *Logger {
	if err == nil {
		return l
	}
	args := []any{"error_code", string(err.Code), "error_message", err.Message}
	if err.Field != "" {
		args = append(args, "error_field", err.Field)
	}
	return &Logger{Logger: l.Logger.With(args...), config: l.config}
}

// Duration is a convenience Field constructor for recording elapsed time.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d}
}
