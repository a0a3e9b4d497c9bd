package config

import (
	"os"
	"strings"
	"time"
)

// CacheConfig defines settings for the task read cache.  When Enabled is false
// or no Redis client is configured, caching is disabled.  Entries are keyed by
// user and by a per-user generation counter, so any task write by that user
// makes all of their cached reads unreachable.  TTL bounds how long an
// unreachable entry lingers in Redis.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	Methods      []string      `env:"CACHE_METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

// LoadCacheConfig reads the CACHE_* variables.  A malformed value falls back
// to the defaults rather than failing startup; the cache is an optimisation.
func LoadCacheConfig() CacheConfig {
	var cfg CacheConfig
	if err := parse(&cfg); err != nil {
		cfg = CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20}
	}
	for i, m := range cfg.Methods {
		cfg.Methods[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

// Cacheable reports whether responses to method may be cached.
func (c CacheConfig) Cacheable(method string) bool {
	for _, m := range c.Methods {
		if m == strings.ToUpper(method) {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
