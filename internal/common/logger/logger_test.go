package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}

func TestZapAdapter_CarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		WithFields(map[string]interface{}{"component": "gateway"}).
		WithError(errors.New("quota exceeded"))

	log.Warn("primary failed", map[string]interface{}{"provider": "gemini"})

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gateway", fields["component"])
	assert.Equal(t, "gemini", fields["provider"])
	assert.Equal(t, "quota exceeded", fields["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestNew_FallsBackToNopOnBadOutput(t *testing.T) {
	l := New("info", "json", "/nonexistent-dir/for/sure/cinesense.log")
	assert.NotNil(t, l)
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	log.Info("ignored", nil)
	assert.NotNil(t, log.With(map[string]interface{}{"k": "v"}))
}
