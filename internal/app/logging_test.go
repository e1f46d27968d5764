package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		result := tt.level.String()
		if result != tt.expected {
			t.Errorf("LogLevel(%d).String() = '%s', expected '%s'", tt.level, result, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"WARNING", LogLevelWarn},
		{"error", LogLevelError},
		{"unknown", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		result := ParseLogLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLogLevel('%s') = %d, expected %d", tt.input, result, tt.expected)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	for _, hidden := range []string{"debug message", "info message"} {
		if strings.Contains(output, hidden) {
			t.Errorf("expected %q to be filtered out", hidden)
		}
	}
	for _, shown := range []string{"warn message", "error message"} {
		if !strings.Contains(output, shown) {
			t.Errorf("expected %q in output, got: %s", shown, output)
		}
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf})

	logger.WithComponent("reactor").WithField("fd", 7).Info("poll failed", zap.String("cause", "EBADF"))

	output := buf.String()
	for _, want := range []string{"poll failed", "reactor", `"fd": 7`, "EBADF"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLogger_SetLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelError, Output: &buf})
	child := logger.WithComponent("lsp")

	child.Info("should not appear")
	if buf.Len() != 0 {
		t.Error("expected no output at error level")
	}

	logger.SetLevel(LogLevelInfo)
	child.Info("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("expected child output after SetLevel on parent")
	}
	if child.Level() != LogLevelInfo {
		t.Errorf("Level() = %v, expected INFO", child.Level())
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Debug("test")
	l.Error("test")
	l.logComponentError(NewComponentError("lsp", "shutdown", errors.New("boom")))
	if l.Zap() == nil {
		t.Fatal("expected a zap logger")
	}
}

func TestOpenLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "weft", "weft.log")
	logger, closeLog, err := OpenLogger(LoggerConfig{Level: LogLevelDebug, Path: path})
	if err != nil {
		t.Fatalf("OpenLogger() error = %v", err)
	}
	logger.logComponentError(NewComponentError("terminal", "spawn", errors.New("no pty")))
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "spawn failed") || !strings.Contains(string(data), "no pty") {
		t.Errorf("unexpected log contents: %s", data)
	}
}

func TestOpenLoggerWithoutPath(t *testing.T) {
	logger, closeLog, err := OpenLogger(LoggerConfig{})
	if err != nil {
		t.Fatalf("OpenLogger() error = %v", err)
	}
	logger.Info("discarded")
	if err := closeLog(); err != nil {
		t.Errorf("close: %v", err)
	}
}
