package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger returns a logger that writes through t.Log, and installs it
// globally so library code logs into the test output.
func NewTestLogger(t *testing.T) *Logger {
	l := zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
	SetGlobalLogger(l)
	return &Logger{l.Sugar()}
}
