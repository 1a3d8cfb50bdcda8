package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_URL", "sqlite:foodgram.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite:foodgram.db", cfg.Database.DSN)
	assert.Equal(t, ":8000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, 30*time.Minute, cfg.Database.MaxConnLifetime)
	assert.Equal(t, "s", cfg.Links.ShortPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dsn: postgres://file/db
  max_conns: 7
server:
  http_addr: ":9000"
links:
  public_base_url: https://from-file.example
logging:
  level: debug
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DB_URL", "postgres://env/db")
	t.Setenv("HTTP_READ_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.DSN, "env wins over file")
	assert.Equal(t, int32(7), cfg.Database.MaxConns)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://from-file.example", cfg.Links.PublicBaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRequiresDSN(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
