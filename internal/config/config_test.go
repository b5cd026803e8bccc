package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
api:
  base_url: "https://api.rift.example"
  timeout: "10s"
  breaker_enabled: true
secrets:
  backend: "memory"
log:
  level: "debug"
  format: "json"
username:
  debounce: "250ms"
devserver:
  port: 4000
  access_ttl: "1m"
`

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rift.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://api.rift.example", cfg.API.BaseURL)
	require.Equal(t, 10*time.Second, cfg.API.Timeout)
	require.True(t, cfg.API.BreakerEnabled)
	require.Equal(t, SecretsMemory, cfg.Secrets.Backend)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 250*time.Millisecond, cfg.Username.Debounce)
	require.Equal(t, 4000, cfg.DevServer.Port)
	require.Equal(t, time.Minute, cfg.DevServer.AccessTTL)
	require.Equal(t, 720*time.Hour, cfg.DevServer.RefreshTTL)
}

func TestLoadBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "api: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "from_env.yaml", sampleYAML)
	t.Setenv("RIFT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://api.rift.example", cfg.API.BaseURL)
}

func TestLoadDefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RIFT_CONFIG", "")
	writeFile(t, ".", DefaultFile, sampleYAML)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.DevServer.Port)
}

func TestLoadEnvOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rift.yaml", sampleYAML)
	t.Setenv("RIFT_API_BASE_URL", "http://10.0.0.5:3000")
	t.Setenv("RIFT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://10.0.0.5:3000", cfg.API.BaseURL)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOnlyDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("RIFT_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.False(t, cfg.API.BreakerEnabled)
	require.Equal(t, SecretsBadger, cfg.Secrets.Backend)
	require.Equal(t, 500*time.Millisecond, cfg.Username.Debounce)
	require.Equal(t, 3000, cfg.DevServer.Port)
}
