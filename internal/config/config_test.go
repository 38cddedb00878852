package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/livestate/internal/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, DefaultRedisChannel, cfg.Redis.Channel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
	assert.Empty(t, cfg.Path())
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, JSONFileName, `{
  "log": {"level": "debug"},
  "server": {"addr": "127.0.0.1:9000", "allowedOrigins": ["https://example.com"]},
  "metrics": {"enabled": false},
  "state": {"round": {"number": 1}}
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, map[string]any{"number": float64(1)}, cfg.State["round"])
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFileName, `
log:
  format: json
tracing:
  enabled: true
redis:
  enabled: true
  addr: redis:6379
  db: 2
state:
  scores:
    ann: [1, 2]
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, DefaultTracerName, cfg.Tracing.TracerName)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, DefaultRedisChannel, cfg.Redis.Channel)
	assert.Equal(t, map[string]any{"ann": []any{1, 2}}, cfg.State["scores"])
}

func TestLoad_PrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, JSONFileName, `{"server": {"addr": ":1"}}`)
	writeFile(t, dir, YAMLFileName, "server:\n  addr: \":2\"\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":1", cfg.Server.Addr)
}

func TestLoadFile_EmptyYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yml", "")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
		code string
	}{
		{"unknown extension", "livestate.toml", "addr = 1", "E302"},
		{"malformed json", "bad.json", `{"server": `, "E301"},
		{"unknown json field", "extra.json", `{"listen": ":1"}`, "E301"},
		{"unknown yaml field", "extra.yaml", "listen: \":1\"\n", "E301"},
		{"bad level", "level.yaml", "log:\n  level: loud\n", "E301"},
		{"bad format", "format.yaml", "log:\n  format: xml\n", "E301"},
		{"bad timeout", "timeout.yaml", "server:\n  writeTimeout: soon\n", "E301"},
		{"bad metrics path", "metrics.yaml", "metrics:\n  path: metrics\n", "E301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.body)
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.New(tt.code))
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), JSONFileName))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, errors.New("E301"))
}

func TestConfig_LogLevel(t *testing.T) {
	cfg := New()
	cfg.Log.Level = "warn"

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestConfig_WriteTimeout(t *testing.T) {
	cfg := New()
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout())

	cfg.Server.WriteTimeout = "250ms"
	assert.Equal(t, 250*time.Millisecond, cfg.WriteTimeout())

	cfg.Server.WriteTimeout = "never"
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout())
}
