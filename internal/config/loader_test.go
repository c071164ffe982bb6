package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every lookup at an empty temp dir and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalHome, originalWd, originalLookup := osUserHomeDir, osGetwd, osLookupEnv
	originalUser, originalProject := getUserConfigPath, getProjectConfigPath
	t.Cleanup(func() {
		osUserHomeDir, osGetwd, osLookupEnv = originalHome, originalWd, originalLookup
		getUserConfigPath, getProjectConfigPath = originalUser, originalProject
	})

	osUserHomeDir = func() (string, error) { return tempDir, nil }
	osGetwd = func() (string, error) { return tempDir, nil }
	osLookupEnv = func(string) (string, bool) { return "", false }
	return tempDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	isolate(t)

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.Equal(t, 5*time.Second, loaded.Channel.HeartbeatInterval)
}

func TestLoadConfig_UserThenProjectOverride(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, userConfigDir, configFileName), `
seed: "10.0.0.1:8081"
channel:
  heartbeatInterval: 2s
logs:
  maxRecordsPerNode: 10
`)
	writeFile(t, filepath.Join(dir, projectConfigDir, configFileName), `
channel:
  heartbeatInterval: 3s
commands:
  strictCorrelation: false
`)

	loaded, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:8081", loaded.Seed)
	assert.Equal(t, 3*time.Second, loaded.Channel.HeartbeatInterval, "project layer wins")
	assert.Equal(t, 10, loaded.Logs.MaxRecordsPerNode)
	assert.False(t, loaded.Commands.StrictCorrelation)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultPath, loaded.Channel.Path)
	assert.Equal(t, 30*time.Second, loaded.Channel.Reconnect.MaxDelay)
}

func TestLoadConfig_ExplicitPathSkipsLayers(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, userConfigDir, configFileName), `seed: "10.0.0.9:1"`)
	explicit := filepath.Join(dir, "custom.yaml")
	writeFile(t, explicit, `seed: "10.0.0.2:8081"`)

	loaded, err := LoadConfig(explicit)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:8081", loaded.Seed)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, dotEnvFileName), "CLUSTERDASH_SEED=10.0.0.3:8081\nCLUSTERDASH_HEARTBEAT_INTERVAL=1s\nOTHER=x\n")
	osLookupEnv = func(key string) (string, bool) {
		if key == "CLUSTERDASH_HEARTBEAT_INTERVAL" {
			return "750ms", true
		}
		return "", false
	}

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:8081", loaded.Seed)
	assert.Equal(t, 750*time.Millisecond, loaded.Channel.HeartbeatInterval, "process env beats .env")
}

func TestLoadConfig_OverridesWinOverEnvironment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, dotEnvFileName), "CLUSTERDASH_SEED=10.0.0.3:8081\n")

	loaded, err := LoadConfig("", WithSeed("10.0.0.4:8081"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.4:8081", loaded.Seed)

	loaded, err = LoadConfig("", WithSeed(""))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:8081", loaded.Seed, "an empty flag keeps the layered value")

	_, err = LoadConfig("", WithSeed("no-port"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		dir := isolate(t)
		writeFile(t, filepath.Join(dir, projectConfigDir, configFileName), "seed: [unterminated")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		isolate(t)
		osLookupEnv = func(key string) (string, bool) {
			if key == "CLUSTERDASH_STRICT_CORRELATION" {
				return "perhaps", true
			}
			return "", false
		}
		_, err := LoadConfig("")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"seed without port", func(c *Config) { c.Seed = "10.0.0.1" }},
		{"bad scheme", func(c *Config) { c.Channel.Scheme = "http" }},
		{"zero heartbeat", func(c *Config) { c.Channel.HeartbeatInterval = 0 }},
		{"max below initial", func(c *Config) { c.Channel.Reconnect.MaxDelay = time.Millisecond }},
		{"multiplier below one", func(c *Config) { c.Channel.Reconnect.Multiplier = 0.5 }},
		{"jitter above one", func(c *Config) { c.Channel.Reconnect.Jitter = 1.5 }},
		{"negative message size", func(c *Config) { c.Channel.MaxMessageSize = -1 }},
		{"negative retention", func(c *Config) { c.Logs.MaxRecordsPerNode = -1 }},
		{"no columns", func(c *Config) { c.UI.TableColumns = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	assert.NoError(t, GetDefaultConfig().Validate())
}
