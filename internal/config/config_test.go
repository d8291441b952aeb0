package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/models"
)

func TestLoadFull(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, ExecutorConfig{MaxParallelism: 4, MaxIterations: 50}, cfg.Executor)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "./scripts", cfg.Scripts.Dir)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ttl)

	assert.Equal(t, []models.Spec{
		{URI: "gpt", Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
		{URI: "local", Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434", System: "Answer briefly."},
	}, cfg.ModelSpecs())
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse("partial", []byte("executor:\n  max_iterations: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Executor.MaxIterations)
	assert.Equal(t, 8, cfg.Executor.MaxParallelism)
	assert.Equal(t, "info", cfg.Log.Level)

	cfg, err = Parse("empty", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown top-level key", "loggging: {}\n", "loggging"},
		{"bad level", "log:\n  level: loud\n", "level"},
		{"negative parallelism", "executor:\n  max_parallelism: -1\n", "max_parallelism"},
		{"model without provider", "models:\n  - uri: x\n", "provider"},
		{"unknown provider", "models:\n  - uri: x\n    provider: carrier-pigeon\n", "provider"},
		{"bad ttl", "cache:\n  ttl: soon\n", "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.yaml))
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse("broken", []byte("log: [unclosed"))
	assert.ErrorContains(t, err, "error parsing YAML")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel(false))
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel(true))
	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel(false))
	cfg.Log.Level = "error"
	assert.Equal(t, slog.LevelError, cfg.SlogLevel(false))
}

func TestCacheTTLEmpty(t *testing.T) {
	ttl, err := Default().CacheTTL()
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GENC_CONFIG_TEST_KEY=from-file\n"), 0o600))

	t.Setenv("GENC_CONFIG_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("GENC_CONFIG_TEST_KEY"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("GENC_CONFIG_TEST_KEY"))

	t.Setenv("GENC_CONFIG_TEST_KEY", "already-set")
	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "already-set", os.Getenv("GENC_CONFIG_TEST_KEY"))
}
