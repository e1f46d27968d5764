package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names are Info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is the application logger. The terminal belongs to the UI, so
// output goes to a file or, in tests, nowhere.
type Logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	// Level is the minimum log level to output.
	Level LogLevel
	// Output is where logs are written. Ignored when Path is set.
	Output io.Writer
	// Path is a log file, created with its directory and appended to.
	Path string
}

// NewLogger creates a logger writing to cfg.Output. A nil Output
// discards everything.
func NewLogger(cfg LoggerConfig) *Logger {
	level := zap.NewAtomicLevelAt(cfg.Level.zapLevel())
	if cfg.Output == nil {
		return &Logger{z: zap.NewNop(), level: level}
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(cfg.Output), level)
	return &Logger{z: zap.New(core), level: level}
}

// OpenLogger creates a logger on cfg.Path. The returned function syncs
// and closes the file.
func OpenLogger(cfg LoggerConfig) (*Logger, func() error, error) {
	if cfg.Path == "" {
		return NewLogger(cfg), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	cfg.Output = f
	l := NewLogger(cfg)
	return l, func() error {
		_ = l.z.Sync()
		return f.Close()
	}, nil
}

// NopLogger returns a logger that discards all output.
func NopLogger() *Logger {
	return NewLogger(LoggerConfig{})
}

// Zap exposes the underlying logger for packages that take one.
func (l *Logger) Zap() *zap.Logger { return l.z }

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{z: l.z.With(zap.Any(key, value)), level: l.level}
}

// WithComponent returns a new logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{z: l.z.With(zap.String("component", component)), level: l.level}
}

// SetLevel sets the minimum log level of this logger and every logger
// derived from it.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return LogLevelDebug
	case zapcore.WarnLevel:
		return LogLevelWarn
	case zapcore.ErrorLevel:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// logComponentError logs a failed action of a component.
func (l *Logger) logComponentError(err *ComponentError) {
	if err == nil || err.Err == nil {
		return
	}
	l.z.Error(err.Action+" failed",
		zap.String("component", err.Component),
		zap.Error(err.Err))
}
