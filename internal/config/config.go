// Package config loads server configuration from environment variables,
// with a .env file picked up when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the jobstore server.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Cache   CacheConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type BackendConfig struct {
	// Mode selects the primary backend: local or remote.
	Mode string
	// APIURL is the remote store base address, including any path prefix.
	APIURL string
	// HealthTimeout bounds the startup health probe of the remote store.
	HealthTimeout time.Duration
	// DBPath is the SQLite file backing the local store.
	DBPath string
}

type CacheConfig struct {
	// Enabled false disables all caching.
	Enabled bool
	// Driver selects the cache implementation: memory or redis.
	Driver string
	// TTL is the default cache entry lifetime.
	TTL time.Duration
	// StatsTTL is the shorter lifetime for aggregate statistics.
	StatsTTL time.Duration
	RedisURL string
}

// Load reads configuration from the environment and returns a validated
// Config. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("JOBSTORE_PORT", 8080),
			Env:  envString("JOBSTORE_ENV", "development"),
		},
		Backend: BackendConfig{
			Mode:          envString("JOBSTORE_BACKEND", BackendLocal),
			APIURL:        os.Getenv("JOBSTORE_API_URL"),
			HealthTimeout: envDuration("JOBSTORE_HEALTH_TIMEOUT", 5*time.Second),
			DBPath:        envString("JOBSTORE_DB_PATH", "jobstore.db"),
		},
		Cache: CacheConfig{
			Enabled:  envBool("JOBSTORE_CACHE_ENABLED", true),
			Driver:   envString("JOBSTORE_CACHE", CacheMemory),
			TTL:      envDuration("JOBSTORE_CACHE_TTL", 5*time.Minute),
			StatsTTL: envDuration("JOBSTORE_STATS_CACHE_TTL", 30*time.Second),
			RedisURL: os.Getenv("REDIS_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.Mode != BackendLocal && c.Backend.Mode != BackendRemote {
		return fmt.Errorf("JOBSTORE_BACKEND must be local or remote; got %q", c.Backend.Mode)
	}

	if c.Backend.Mode == BackendRemote {
		if c.Backend.APIURL == "" {
			return fmt.Errorf("JOBSTORE_API_URL is required when JOBSTORE_BACKEND is remote")
		}
		if !strings.HasPrefix(c.Backend.APIURL, "http://") && !strings.HasPrefix(c.Backend.APIURL, "https://") {
			return fmt.Errorf("JOBSTORE_API_URL must start with http:// or https://, got %q", c.Backend.APIURL)
		}
	}

	if c.Backend.DBPath == "" {
		return fmt.Errorf("JOBSTORE_DB_PATH must not be empty")
	}

	if c.Cache.Enabled {
		if c.Cache.Driver != CacheMemory && c.Cache.Driver != CacheRedis {
			return fmt.Errorf("JOBSTORE_CACHE must be memory or redis; got %q", c.Cache.Driver)
		}
		if c.Cache.Driver == CacheRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when JOBSTORE_CACHE is redis")
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// envDuration accepts Go duration strings ("5m") and falls back to plain
// integers interpreted as milliseconds, the unit the browser clients used.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
