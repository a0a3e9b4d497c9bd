package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of /api.  The
// defaults allow 100 requests per client per 15 minutes: a full bucket of 100
// tokens refilled one token every 9 seconds.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"100"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"9s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" envDefault:"15m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG" envDefault:"false"`
}

func LoadRateLimitConfig() RateLimitConfig {
	var def RateLimitConfig
	if err := parse(&def); err != nil {
		def = RateLimitConfig{Enabled: true, Capacity: 100, RefillTokens: 1, RefillInterval: 9 * time.Second, TTL: 15 * time.Minute, KeyStrategy: "ip", Prefix: "rl"}
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	minTTL := 5 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
