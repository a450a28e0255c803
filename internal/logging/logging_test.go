package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "warn", Format: FormatJSON, Out: &buf}), "diagram")

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len(), "info is below warn")

	log.Warn().Str("dialect", "Mermaid").Msg("diagram render failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "mdslides", entry["app"])
	assert.Equal(t, "diagram", entry["component"])
	assert.Equal(t, "Mermaid", entry["dialect"])
	assert.Equal(t, "diagram render failed", entry["message"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Out: &buf})

	log.Debug().Msg("base render")
	assert.Contains(t, buf.String(), "base render")
	assert.NotContains(t, buf.String(), `"message"`)
}
