package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelInfo, "text", &buf)

	log.Debug("hidden")
	log.Info("hub started", "addr", ":7070", "error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"hub started\"")
	assert.Contains(t, out, "addr=:7070")
	assert.Contains(t, out, "err=boom")
	assert.NotContains(t, out, "error=")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelDebug, "json", &buf)

	log.Debug("path rebound", "path", "round.number", "error", "stale")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "path rebound", line["msg"])
	assert.Equal(t, "round.number", line["path"])
	assert.Equal(t, "stale", line["err"])
	assert.NotContains(t, line, "error")
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.False(t, log.Enabled(t.Context(), slog.LevelError))
	log.Error("dropped")
}
