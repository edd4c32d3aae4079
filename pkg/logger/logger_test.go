package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("loud"))
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: &buf})

	l.Info("results ingested", "patient_id", 7, "accepted", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "results ingested", entry["message"])
	assert.Equal(t, float64(7), entry["patient_id"])
	assert.Equal(t, float64(3), entry["accepted"])
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: &buf})

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Error(errors.New("boom"), "visible")
	assert.Contains(t, buf.String(), "boom")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: &buf}).
		WithFields(map[string]interface{}{"component": "outbox"})

	l.Warn("slow")
	assert.Contains(t, buf.String(), `"component":"outbox"`)
}
