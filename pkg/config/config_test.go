package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "glm-4.5-air", cfg.Model.ID)
	assert.Equal(t, "zai", cfg.Model.Provider)
	assert.Equal(t, 30, cfg.Shell.NoChangeTimeout)
	assert.Equal(t, 500, cfg.Shell.PollInterval)
	assert.Equal(t, 10000, cfg.Shell.HistoryLimit)
	assert.Equal(t, 40, cfg.Agent.MaxIterations)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"model": {"id": "gpt-4o", "provider": "openai", "baseUrl": "https://api.openai.com/v1"},
		"shell": {"noChangeTimeout": 10, "pollInterval": 250, "historyLimit": 5000, "username": "worker"},
		"log": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model.ID)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "worker", cfg.Shell.Username)
	assert.Equal(t, "debug", cfg.Log.Level)

	sc := cfg.GetShellConfig(nil)
	assert.Equal(t, 10*time.Second, sc.NoChangeTimeout)
	assert.Equal(t, 250*time.Millisecond, sc.PollInterval)
	assert.Equal(t, 5000, sc.HistoryLimit)
	assert.Equal(t, "worker", sc.Username)
	assert.NotEmpty(t, sc.WorkDir)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DROVER_MODEL", "env-model")
	t.Setenv("DROVER_BASE_URL", "https://env.example/v1")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model.ID)
	assert.Equal(t, "https://env.example/v1", cfg.Model.BaseURL)
	assert.Equal(t, "env-model", cfg.GetLLMModel().ID)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Model.ID = "saved-model"

	require.NoError(t, SaveConfig(cfg, path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", reloaded.Model.ID)
}

func TestResolveAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TESTPROV_API_KEY", "sk-env-123")

	key, err := ResolveAPIKey("testprov")
	require.NoError(t, err)
	assert.Equal(t, "sk-env-123", key)
}

func TestResolveAPIKeyFromAuthFile(t *testing.T) {
	dir := t.TempDir()
	authPath := filepath.Join(dir, "auth.json")
	body := `{
		"stringprov": "sk-plain",
		"objprov": {"type": "api", "apiKey": "sk-object"}
	}`
	require.NoError(t, os.WriteFile(authPath, []byte(body), 0644))

	key, err := resolveFromAuthFile("stringprov", "STRINGPROV_API_KEY", authPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-plain", key)

	key, err = resolveFromAuthFile("objprov", "OBJPROV_API_KEY", authPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-object", key)

	_, err = resolveFromAuthFile("missing", "MISSING_API_KEY", authPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}
