package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		env, level string
		debug      bool
	}{
		{"development", "debug", true},
		{"production", "info", false},
		{"production", "not-a-level", false},
	}
	for _, tc := range tests {
		log, err := New(tc.env, tc.level)
		if err != nil {
			t.Fatalf("New(%s, %s): %v", tc.env, tc.level, err)
		}
		if got := log.Core().Enabled(zapcore.DebugLevel); got != tc.debug {
			t.Errorf("New(%s, %s) debug enabled = %v, want %v", tc.env, tc.level, got, tc.debug)
		}
	}
}
