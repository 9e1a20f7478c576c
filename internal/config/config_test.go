package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Minute, cfg.NonceTTL.Std())
	assert.Equal(t, "nonceToken", cfg.SessionCookie)
	assert.Equal(t, "cid", cfg.ClientCookie)
	assert.Equal(t, "memory", cfg.Store)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GHOSTGATE_NONCE_TTL", "90s")
	t.Setenv("GHOSTGATE_STORE", "sqlite")
	t.Setenv("GHOSTGATE_LOG_LEVEL", "DEBUG")

	cfg := DefaultConfig()
	assert.Equal(t, 90*time.Second, cfg.NonceTTL.Std())
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"addr: \":9090\"\nnonce_ttl: 5m\nstore: sqlite\nsqlite_path: /tmp/gg.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL.Std())
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "/tmp/gg.db", cfg.SQLitePath)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = "redis"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.NonceTTL = 0
	assert.Error(t, cfg.Validate())
}
