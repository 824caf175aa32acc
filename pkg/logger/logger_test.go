package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	Initialize(Config{Level: WarnLevel, Component: "test"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("debug message")
	Info("info message")
	Warn("warn message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
}

func TestLogJSONOutput(t *testing.T) {
	Initialize(Config{Level: InfoLevel, JSON: true, Component: "bucketctl"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("generated manifest", String("path", "manifest.json"), Int("packages", 3))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "generated manifest", entry.Message)
	assert.Equal(t, "bucketctl", entry.Component)
	assert.Equal(t, "manifest.json", entry.Fields["path"])
	assert.Equal(t, float64(3), entry.Fields["packages"])
}

func TestLogPrettyFields(t *testing.T) {
	Initialize(Config{Level: InfoLevel, Component: "bucketctl"})
	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("skipping repository", String("repo", "acme/widget"), String("reason", "no releases"))

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "bucketctl:")
	assert.Contains(t, output, "repo=acme/widget")
}
