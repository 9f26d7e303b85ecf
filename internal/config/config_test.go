package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Execute.RequestsPerSec)
	assert.Equal(t, 5, cfg.Execute.MaxConcurrent)
	assert.Equal(t, "./backups", cfg.Execute.BackupDir)
	assert.False(t, cfg.Execute.ForceDelete)
	assert.False(t, cfg.Execute.SkipConflicted)
	assert.False(t, cfg.Execute.PreserveAlbums)
	assert.Equal(t, 10, cfg.Conflict.CaptureTimeToleranceSecs)
	assert.Equal(t, "Apple", cfg.Letterbox.Make)
	assert.Equal(t, "iPhone", cfg.Letterbox.Model)
	assert.Equal(t, 1000, cfg.Letterbox.PageSize)
	assert.Equal(t, "./immich-dedupe.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
server:
  url: https://photos.example.com
  api_key: test-key
execute:
  requests_per_sec: 4
  backup_dir: /tmp/photo-backups
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://photos.example.com", cfg.Server.URL)
	assert.Equal(t, "test-key", cfg.Server.APIKey)
	assert.Equal(t, 4, cfg.Execute.RequestsPerSec)
	assert.Equal(t, "/tmp/photo-backups", cfg.Execute.BackupDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Execute.MaxConcurrent)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
server:
  url: https://photos.example.com
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("IMMICH_DEDUPE_SERVER_URL", "https://other.example.com")
	t.Setenv("IMMICH_DEDUPE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "https://other.example.com", cfg.Server.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOnlyCredentials(t *testing.T) {
	// No config.yaml at all: credentials supplied purely through the
	// environment must still land in the config.
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("IMMICH_DEDUPE_SERVER_URL", "https://photos.example.com")
	t.Setenv("IMMICH_DEDUPE_SERVER_API_KEY", "env-only-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://photos.example.com", cfg.Server.URL)
	assert.Equal(t, "env-only-key", cfg.Server.APIKey)
	assert.NoError(t, cfg.Validate("remote"))
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("IMMICH_DEDUPE_EXECUTE_REQUESTS_PER_SEC", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Execute.RequestsPerSec)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Execute.RequestsPerSec = 10
	cfg.Execute.MaxConcurrent = 5
	cfg.Conflict.CaptureTimeToleranceSecs = 10
	cfg.Letterbox.PageSize = 1000
	return cfg
}

func TestValidateRemote_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.URL = "https://photos.example.com"
	cfg.Server.APIKey = "test-key"

	assert.NoError(t, cfg.Validate("remote"))
}

func TestValidateRemote_MissingServer(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("remote")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.url is required")
	assert.Contains(t, err.Error(), "server.api_key is required")
}

func TestValidateLocal_NoServerNeeded(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("local"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Execute.RequestsPerSec = 0
	err := cfg.Validate("local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requests_per_sec must be between 1 and 100")

	cfg.Execute.RequestsPerSec = 101
	err = cfg.Validate("local")
	assert.Error(t, err)

	cfg.Execute.RequestsPerSec = 100
	assert.NoError(t, cfg.Validate("local"))

	cfg.Execute.MaxConcurrent = 51
	err = cfg.Validate("local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent must be between 1 and 50")

	cfg.Execute.MaxConcurrent = 5
	cfg.Conflict.CaptureTimeToleranceSecs = -1
	err = cfg.Validate("local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "capture_time_tolerance_secs")

	cfg.Conflict.CaptureTimeToleranceSecs = 0
	cfg.Letterbox.PageSize = 0
	err = cfg.Validate("local")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}
