package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	_, cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Game.LedgerTimeout)
	assert.Equal(t, int64(100000), cfg.Game.InitialBalance)
	assert.Equal(t, 10000, cfg.Game.MaxSessions)
	assert.Equal(t, "/ws", cfg.WebSocket.Path)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := []byte(`
server:
  port: 9090
game:
  ledger_timeout: 500ms
  max_sessions: 3
  config_dir: /srv/games
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, doc, 0o644))
	t.Setenv("SPIN_ENGINE_GAME_SEED_KEY", "from-env")

	_, cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 500*time.Millisecond, cfg.Game.LedgerTimeout)
	assert.Equal(t, 3, cfg.Game.MaxSessions)
	assert.Equal(t, "/srv/games", cfg.Game.ConfigDir)
	assert.Equal(t, "from-env", cfg.Game.SeedKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestInitAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	require.NoError(t, Init(path))
	require.NotNil(t, Get())
	assert.Equal(t, 7070, Get().Server.Port)
}
