package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Warn().Err(errors.New("boom")).Str("room_id", "r1").Msg("goal insert failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "r1", entry["room_id"])
	assert.Equal(t, "goal insert failed", entry["message"])
}

func TestLevelFiltersLowerEvents(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
