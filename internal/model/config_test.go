package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000/api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Socket.ReconnectAttempts)
	assert.Equal(t, "refcount", cfg.Realtime.Teardown)
	assert.Equal(t, 10, cfg.Realtime.OverlaySize)
	assert.Equal(t, 30, cfg.Cache.UnreadStaleSec)
	assert.Equal(t, 60, cfg.Cache.UnreadRefetchSec)
	assert.False(t, cfg.Notifications.Desktop)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	v := viper.New()
	ApplyDefaults(v)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	cfg.API.BaseURL = "https://api.example.test"
	cfg.Realtime.Teardown = "eager"
	cfg.Notifications.Desktop = true

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.test", loaded.API.BaseURL)
	assert.Equal(t, "eager", loaded.Realtime.Teardown)
	assert.True(t, loaded.Notifications.Desktop)
}

func TestLoadConfigRejectsBadTeardown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("realtime:\n  teardown: lazy\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "realtime.teardown")
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GIFTCARD_API_BASE_URL", "https://env.example.test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.test", cfg.API.BaseURL)
}
