package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerEnvironments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("NewLogger(%q) error = %v", env, err)
		}
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("NewLogger should reject unknown environments")
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug override should enable debug level")
	}

	l, err = NewLogger("local", "error")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("error override should suppress info level")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("NewLogger should reject unknown levels")
	}
}
