package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "./data", config.DataDir)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "127.0.0.1", config.Bind)
	assert.Equal(t, "log", config.Storage.Engine)
	assert.Equal(t, 10*time.Second, config.Enrich.Timeout)
	assert.Equal(t, "info", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestGenerateSecureKey(t *testing.T) {
	t.Run("generate 32 byte key", func(t *testing.T) {
		key, err := GenerateSecureKey(32)
		require.NoError(t, err)
		assert.Len(t, key, 64)

		_, err = hex.DecodeString(key)
		assert.NoError(t, err)
	})

	t.Run("generate different keys", func(t *testing.T) {
		key1, err := GenerateSecureKey(16)
		require.NoError(t, err)
		key2, err := GenerateSecureKey(16)
		require.NoError(t, err)

		assert.NotEqual(t, key1, key2)
	})
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /custom/data
port: 9000
storage:
  engine: pebble
enrich:
  api_key: file-key
  timeout: 3s
security:
  cors_origins:
    - http://localhost:3000
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Bind, "unset keys keep defaults")
	assert.Equal(t, "pebble", cfg.Storage.Engine)
	assert.Equal(t, "file-key", cfg.Enrich.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Enrich.Timeout)
	assert.Equal(t, "https://www.omdbapi.com", cfg.Enrich.BaseURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Security.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("port: 9000\n"), 0600))

	t.Setenv("SHELF_PORT", "9100")
	t.Setenv("SHELF_DATA_DIR", "/env/data")
	t.Setenv("SHELF_RATE_LIMIT_REQUESTS", "7")
	t.Setenv("SHELF_SECURITY_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("OMDB_API_KEY", "legacy-key")
	t.Setenv("FE_PROD_URL", "https://shelf.example")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, 7, cfg.RateLimit.Requests)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.CORSOrigins)
	assert.Equal(t, "legacy-key", cfg.Enrich.APIKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test", "https://shelf.example"}, cfg.Security.AllowedOrigins())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0600))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config file")
	})

	t.Run("invalid engine", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  engine: bolt\n"), 0600))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "storage.engine")
	})
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"SHELF_DATA_DIR":               "data_dir",
		"SHELF_ENRICH_BASE_URL":        "enrich.base_url",
		"SHELF_RATE_LIMIT_WINDOW":      "rate_limit.window",
		"SHELF_STORAGE_FSYNC_INTERVAL": "storage.fsync_interval",
		"FE_DEV_URL":                   "security.frontend_dev_url",
		"HOME":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := DefaultConfig()

	require.NoError(t, SaveConfig(config, configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.Enrich, loaded.Enrich)
	assert.Equal(t, config.RateLimit, loaded.RateLimit)
	assert.Equal(t, config.Storage, loaded.Storage)
}

func TestBootstrapConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	dataDir := "/custom/data/dir"

	config, err := BootstrapConfig(configPath, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, config.DataDir)
	assert.Len(t, config.Security.APIKey, 64)
	assert.True(t, ConfigExists(configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.Security.APIKey, loaded.Security.APIKey)
	assert.Equal(t, dataDir, loaded.DataDir)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "shelf")
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := DefaultConfig()
	config.Security.CORSOrigins = []string{"http://localhost:3000"}

	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 10s")

	var unmarshalled Config
	require.NoError(t, yaml.Unmarshal(data, &unmarshalled))
	assert.Equal(t, config, &unmarshalled)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	err := SaveConfig(DefaultConfig(), filepath.Join(blocker, "sub", "config.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}
