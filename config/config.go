package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Almirante-Ming/Rose/client"
	"github.com/joho/godotenv"
)

const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

type Config struct {
	Env            string
	LogLevel       string
	APIURL         string
	DataDir        string
	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	HTTPTimeout    time.Duration

	ServerAddr    string
	DatabaseURL   string
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

// Load reads the environment, after merging a .env file when one exists.
// Every missing or invalid variable is reported at once.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:            "development",
		LogLevel:       "info",
		APIURL:         client.DefaultBaseURL,
		SessionBackend: SessionBackendFile,
		RedisAddr:      "localhost:6379",
		HTTPTimeout:    client.DefaultTimeout,
		ServerAddr:     ":9090",
		TokenTTL:       24 * time.Hour,
	}

	invalid := make([]string, 0, 2)

	if v := env("ROSE_ENV"); v != "" {
		cfg.Env = v
	}

	if v := env("ROSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v := env("ROSE_API_URL"); v != "" {
		normalized, err := client.NormalizeBaseURL(v)

		if err != nil {
			invalid = append(invalid, "ROSE_API_URL")
		} else {
			cfg.APIURL = normalized
		}
	}

	if v := env("ROSE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	} else {
		dir, err := os.UserConfigDir()

		if err != nil {
			dir = "."
		}

		cfg.DataDir = filepath.Join(dir, "rose")
	}

	if v := env("ROSE_SESSION_BACKEND"); v != "" {
		switch v {
		case SessionBackendFile, SessionBackendRedis:
			cfg.SessionBackend = v
		default:
			invalid = append(invalid, "ROSE_SESSION_BACKEND")
		}
	}

	if v := env("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if v := env("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)

		if err != nil || db < 0 {
			invalid = append(invalid, "REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if v := env("ROSE_HTTP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)

		if err != nil || timeout <= 0 {
			invalid = append(invalid, "ROSE_HTTP_TIMEOUT")
		} else {
			cfg.HTTPTimeout = timeout
		}
	}

	if v := env("ROSE_SERVER_ADDR"); v != "" {
		cfg.ServerAddr = v
	}

	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.JWTSecret = env("ROSE_JWT_SECRET")

	if v := env("ROSE_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)

		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROSE_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	cfg.AdminEmail = env("ROSE_ADMIN_EMAIL")
	cfg.AdminPassword = os.Getenv("ROSE_ADMIN_PASSWORD")

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %v", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// CheckServer reports the variables the development backend cannot start
// without.
func (c Config) CheckServer() error {
	missing := make([]string, 0, 1)

	if len(c.JWTSecret) == 0 {
		missing = append(missing, "ROSE_JWT_SECRET")
	}

	if len(c.AdminEmail) > 0 && len(c.AdminPassword) == 0 {
		missing = append(missing, "ROSE_ADMIN_PASSWORD")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %v", strings.Join(missing, ", "))
	}

	return nil
}

func (c Config) SessionFile() string {
	return filepath.Join(c.DataDir, "session.json")
}

func (c Config) PreferencesFile() string {
	return filepath.Join(c.DataDir, "preferences.json")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
