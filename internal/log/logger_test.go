package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Output: &buf})

	l.Debug("hidden")
	l.Info("declared program point", "ppt", "..main()", "vars", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO: declared program point ppt=..main() vars=3")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: ErrorLevel, Output: &buf})

	l.Warn("quiet")
	assert.Empty(t, buf.String())

	l.SetLevel(DebugLevel)
	l.Debug("loud")
	assert.Contains(t, buf.String(), "DEBUG: loud")
}

func TestDefaultLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Output: &buf})
	l.SetJSONOutput(true)

	l.Error("write failed", "ppt", "..f()", "count", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "write failed", entry["message"])
	assert.Equal(t, "..f()", entry["ppt"])
	assert.Equal(t, float64(2), entry["count"])
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	l.SetLevel(DebugLevel)
	l.Debug("still fine")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"", InfoLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
