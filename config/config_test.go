package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Almirante-Ming/Rose/config"
	"github.com/stretchr/testify/require"
)

var variables = []string{
	"ROSE_ENV", "ROSE_LOG_LEVEL", "ROSE_API_URL", "ROSE_DATA_DIR", "ROSE_SESSION_BACKEND",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "ROSE_HTTP_TIMEOUT", "ROSE_SERVER_ADDR",
	"DATABASE_URL", "ROSE_JWT_SECRET", "ROSE_TOKEN_TTL", "ROSE_ADMIN_EMAIL", "ROSE_ADMIN_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range variables {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {

	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSE_DATA_DIR", "/tmp/rose")

		cfg, err := config.Load()

		require.NoError(t, err)
		require.Equal(t, "development", cfg.Env)
		require.Equal(t, "info", cfg.LogLevel)
		require.Equal(t, "https://tinto.com.br", cfg.APIURL)
		require.Equal(t, config.SessionBackendFile, cfg.SessionBackend)
		require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
		require.Equal(t, ":9090", cfg.ServerAddr)
		require.Equal(t, 24*time.Hour, cfg.TokenTTL)
		require.Equal(t, filepath.Join("/tmp/rose", "session.json"), cfg.SessionFile())
		require.Equal(t, filepath.Join("/tmp/rose", "preferences.json"), cfg.PreferencesFile())
	})

	t.Run("overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSE_ENV", "production")
		t.Setenv("ROSE_LOG_LEVEL", "DEBUG")
		t.Setenv("ROSE_API_URL", "http://localhost:9090/")
		t.Setenv("ROSE_SESSION_BACKEND", "redis")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("ROSE_HTTP_TIMEOUT", "3s")
		t.Setenv("ROSE_TOKEN_TTL", "1h")

		cfg, err := config.Load()

		require.NoError(t, err)
		require.Equal(t, "production", cfg.Env)
		require.Equal(t, "debug", cfg.LogLevel)
		require.Equal(t, "http://localhost:9090", cfg.APIURL)
		require.Equal(t, config.SessionBackendRedis, cfg.SessionBackend)
		require.Equal(t, 2, cfg.RedisDB)
		require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
		require.Equal(t, time.Hour, cfg.TokenTTL)
	})

	t.Run("invalid values are reported together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROSE_API_URL", "ftp://example.com")
		t.Setenv("ROSE_SESSION_BACKEND", "sqlite")
		t.Setenv("REDIS_DB", "-1")
		t.Setenv("ROSE_HTTP_TIMEOUT", "soon")

		_, err := config.Load()

		require.EqualError(t, err, "invalid environment variables: ROSE_API_URL, ROSE_SESSION_BACKEND, REDIS_DB, ROSE_HTTP_TIMEOUT")
	})
}

func TestCheckServer(t *testing.T) {
	require.EqualError(t, config.Config{}.CheckServer(), "missing environment variables: ROSE_JWT_SECRET")
	require.EqualError(t, config.Config{JWTSecret: "s", AdminEmail: "a@b.c"}.CheckServer(), "missing environment variables: ROSE_ADMIN_PASSWORD")
	require.NoError(t, config.Config{JWTSecret: "s"}.CheckServer())
}
