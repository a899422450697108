package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 51515, cfg.SessionPort)
	assert.Equal(t, 12121, cfg.DiscoveryPort)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RPS_ROUNDS", "5")
	t.Setenv("RPS_SESSION_PORT", "50000")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Rounds)
	assert.Equal(t, 50000, cfg.SessionPort)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	cfg.Rounds = 4
	cfg.SessionPort = 52000
	cfg.Bind = "192.168.1.7"
	require.NoError(t, cfg.Save(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rounds)
	assert.Equal(t, 52000, got.SessionPort)
	assert.Equal(t, "192.168.1.7", got.Bind)
}

func TestValidate_RoundsRange(t *testing.T) {
	t.Setenv("RPS_ROUNDS", "9")
	_, err := Load(t.TempDir())
	require.Error(t, err)

	cfg := &Config{SessionPort: 51515, DiscoveryPort: 12121, Rounds: 0}
	require.Error(t, cfg.Save(t.TempDir()))
}
