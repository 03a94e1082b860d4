package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "dashboardBuilder", cfg.Storage.Key)
	assert.Equal(t, 50, cfg.History.Limit)
	assert.Equal(t, "/builder", cfg.Server.BasePath)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "builder.yaml", `
api:
  base_url: https://askdata.example.org
  timeout: 3s
history:
  limit: 20
chart:
  theme: macarons
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://askdata.example.org", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 20, cfg.History.Limit)
	assert.Equal(t, "macarons", cfg.Chart.Theme)
	assert.Equal(t, ":9876", cfg.Server.Addr, "unset keys keep their defaults")
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "builder.toml", `
[storage]
driver = "mongo"
mongo_uri = "mongodb://db:27017"

[log]
level = "debug"
pretty = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "askdata", cfg.Storage.MongoDatabase)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown yaml key.yaml": "api:\n  base_uri: x\n",
		"unknown toml key.toml": "[server]\nport = 1\n",
		"bad storage.yaml":      "storage:\n  driver: s3\n",
		"mongo no uri.yaml":     "storage:\n  driver: mongo\n",
		"bad history.yaml":      "history:\n  limit: 0\n",
		"bad base path.yaml":    "server:\n  base_path: builder\n",
		"bad level.yaml":        "log:\n  level: loud\n",
		"wrong type.json":       "{}",
	}
	for name, body := range cases {
		if _, err := Load(writeFile(t, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASKDATA_API_URL", "http://api.internal")
	t.Setenv("ASKDATA_API_TIMEOUT", "2s")
	t.Setenv("ASKDATA_HISTORY_LIMIT", "7")
	t.Setenv("ASKDATA_ECHARTS_CDN", "https://cdn.example.com/")
	t.Setenv("ASKDATA_LOG_PRETTY", "true")

	path := writeFile(t, "builder.yaml", "api:\n  base_url: http://from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal", cfg.API.BaseURL, "environment wins over the file")
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, 7, cfg.History.Limit)
	assert.Equal(t, "https://cdn.example.com/", cfg.Chart.AssetsHost)
	assert.True(t, cfg.Log.Pretty)
}

func TestEnvOverrideErrors(t *testing.T) {
	for name, value := range map[string]string{
		"ASKDATA_API_TIMEOUT":   "soon",
		"ASKDATA_HISTORY_LIMIT": "many",
		"ASKDATA_LOG_PRETTY":    "sometimes",
	} {
		cfg := Default()
		lookup := func(key string) (string, bool) {
			if key == name {
				return value, true
			}
			return "", false
		}
		if err := applyEnv(&cfg, lookup); err == nil {
			t.Fatalf("%s=%s: expected error", name, value)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", false)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Str("code", "SP.POP.TOTL").Msg("fetch failed")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, `"code":"SP.POP.TOTL"`))

	_, err = NewLogger("chatty", false)
	require.Error(t, err)

	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}
