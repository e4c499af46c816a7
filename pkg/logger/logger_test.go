package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("filtered out")
	log.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "kept")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "shouting", Output: &buf})

	out := buf.String()
	require.Contains(t, out, "Unknown log level")
	assert.Contains(t, out, "shouting")

	buf.Reset()
	log.Debug().Msg("below info")
	log.Info().Msg("at info")
	out = buf.String()
	assert.NotContains(t, out, "below info")
	assert.Contains(t, out, "at info")
}

func TestNewLevelNamesAreCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: " Debug ", Output: &buf})

	log.Debug().Msg("debug enabled")
	assert.Contains(t, buf.String(), "debug enabled")
}

func TestNewPrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Pretty: true, Output: &buf})

	log.Info().Msg("console line")

	// ConsoleWriter renders the level as text instead of a JSON field
	out := buf.String()
	assert.Contains(t, out, "console line")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}
