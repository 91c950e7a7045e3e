package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLogrusLevel(tc.input))
		})
	}
}

func TestNewLogger_Formatter(t *testing.T) {
	dev := NewLogger("debug", "development")
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())

	prod := NewLogger("warn", "production")
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
}

func TestLogPassSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "production")

	LogPassSummary(WithComponent(logger, "signal_classifier"), "classification", 12, 2, 5)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Pass completed", entry["msg"])
	assert.Equal(t, "signal_classifier", entry["component"])
	assert.Equal(t, "classification", entry["pass_type"])
	assert.Equal(t, float64(12), entry["processed"])
	assert.Equal(t, float64(2), entry["skipped"])
}

func TestLogStartupAndShutdown(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "staging")

	LogStartup(logger, "skupulse", "1.0.0", 8080)
	LogShutdown(logger, "skupulse", "signal received")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var startup, shutdown map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &startup))
	require.NoError(t, json.Unmarshal(lines[1], &shutdown))
	assert.Equal(t, "startup", startup["event"])
	assert.Equal(t, float64(8080), startup["port"])
	assert.Equal(t, "shutdown", shutdown["event"])
	assert.Equal(t, "signal received", shutdown["reason"])
}
