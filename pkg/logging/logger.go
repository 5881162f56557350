// Package logging wraps log/slog behind a small interface so components can
// take a Logger without caring where output goes.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the logging surface handed to components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	SetLevel(level slog.Level)
}

// Format selects the handler encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config describes a logger to build.
type Config struct {
	Level   slog.Level
	Format  Format
	Output  io.Writer
	AddTime bool
}

type slogLogger struct {
	logger *slog.Logger
	// Shared across With children so SetLevel applies to the whole family.
	level *slog.LevelVar
}

// NewLogger builds a logger from the config. A nil Output means stderr.
func NewLogger(config Config) Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(config.Level)

	opts := &slog.HandlerOptions{Level: level}
	if !config.AddTime {
		opts.ReplaceAttr = stripTime
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &slogLogger{logger: slog.New(handler), level: level}
}

// stripTime drops the time attribute; CLI output reads better without it.
func stripTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

func stderrLogger(level slog.Level) Logger {
	return NewLogger(Config{Level: level, Format: FormatText, Output: os.Stderr})
}

// NewDefaultLogger shows info and above on stderr.
func NewDefaultLogger() Logger {
	return stderrLogger(slog.LevelInfo)
}

// NewQuietLogger shows only errors.
func NewQuietLogger() Logger {
	return stderrLogger(slog.LevelError)
}

// NewVerboseLogger shows everything including debug.
func NewVerboseLogger() Logger {
	return stderrLogger(slog.LevelDebug)
}

// NewDisabledLogger discards all output. Useful in tests.
func NewDisabledLogger() Logger {
	return NewLogger(Config{Level: slog.Level(1000), Format: FormatText, Output: io.Discard})
}

// GetDebugFilePath resolves the debug log destination: PDFGENIE_DEBUG_FILE
// when set, otherwise defaultFileName under the temp directory.
func GetDebugFilePath(defaultFileName string) string {
	if path := os.Getenv("PDFGENIE_DEBUG_FILE"); path != "" {
		return path
	}
	return filepath.Join(os.TempDir(), defaultFileName)
}

// NewFileLoggerFromEnv builds a logger that appends to the debug file named
// by PDFGENIE_DEBUG_FILE, at the level named by PDFGENIE_DEBUG_LEVEL. When
// the file cannot be opened the logger discards output instead of failing.
func NewFileLoggerFromEnv(defaultFileName string) Logger {
	level := levelFromEnv()

	file, err := os.OpenFile(GetDebugFilePath(defaultFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return NewLogger(Config{Level: level, Format: FormatText, Output: io.Discard})
	}

	return NewLogger(Config{Level: level, Format: FormatText, Output: file, AddTime: true})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("PDFGENIE_DEBUG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), level: l.level}
}

func (l *slogLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

var globalLogger Logger = NewDefaultLogger()

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() Logger {
	return globalLogger
}

// Package-level shortcuts on the global logger.

func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }

// NewComponentLogger tags entries with the originating component.
func NewComponentLogger(component string) Logger {
	return globalLogger.With("component", component)
}

// NewAPILogger tags entries for outbound provider requests.
func NewAPILogger(service string) Logger {
	return globalLogger.With("component", "api", "service", service)
}
