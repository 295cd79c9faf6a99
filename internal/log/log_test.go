package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf, JSON: true, Service: "test"})

	l.Debug().Str(FieldSerial, "SN123").Int(FieldChannel, 0).Msg("stream started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "SN123", entry[FieldSerial])
	assert.Equal(t, "stream started", entry["message"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf, JSON: true})

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := New(Config{Level: "chatty", Output: &buf, JSON: true})

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_ConsoleOutput(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	l.Info().Str(FieldAttr, "ExposureTime").Msg("node set")
	assert.Contains(t, buf.String(), "node set")
	assert.Contains(t, buf.String(), "ExposureTime")
}
