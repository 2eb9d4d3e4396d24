package config

import (
	"fmt"
	"time"

	"go-simpler.org/env"
)

// RateLimitConfig configures the Redis token bucket. Each key starts
// with Capacity tokens and regains RefillTokens every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" default:"60"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" default:"10m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" default:"ip_user_route"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" default:"rl"`
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables and clamps them
// to workable values.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	var c RateLimitConfig
	if err := env.Load(&c, nil); err != nil {
		return c, fmt.Errorf("load rate limit config: %w", err)
	}
	c.normalize()
	return c, nil
}

func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// a key must live long enough to refill completely
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
