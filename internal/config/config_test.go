package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, "film_festival", cfg.DB.Name)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "logs/activity.log", cfg.ActivityLog)
}

func TestLoad_EnvironmentValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ADMIN_EMAILS", "a@example.com,b@example.com")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("DB_PORT", "3307")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, "3307", cfg.DB.Database().Port)
}

func TestLoad_FileOverridesEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_PORT", "9000")

	path := filepath.Join(t.TempDir(), "festival.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9100"
log_format: json
db:
  host: db.internal
auth:
  refresh_ttl: 24h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "root", cfg.DB.User, "keys missing from the file keep their value")
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"short secret", "JWT_SECRET", "short", "JWT_SECRET must be at least 16 characters"},
		{"unknown driver", "STORE_DRIVER", "postgres", `STORE_DRIVER must be "mysql" or "memory", got "postgres"`},
		{"bad log format", "LOG_FORMAT", "xml", `LOG_FORMAT must be text or json, got "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	setRequiredEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")

	c, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.True(t, c.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, time.Minute, c.TTL)
	assert.Equal(t, "cache", c.Prefix)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestRedisConfigAddress(t *testing.T) {
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
	assert.Equal(t, "r:1", RedisConfig{Host: "r", Port: "1"}.Address())
	assert.Equal(t, "x:2", RedisConfig{Addr: "x:2", Host: "r", Port: "1"}.Address())
	assert.Nil(t, NewRedisClient(t.Context(), RedisConfig{Disabled: true}))
}
