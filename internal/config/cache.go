package config

import (
	"fmt"
	"strings"
	"time"

	"go-simpler.org/env"
)

// CacheConfig defines settings for the response cache middleware.
// Methods lists the HTTP methods to cache and KeyStrategy which parts
// of the request form the key. Mutations invalidate every key under
// Prefix, so TTL only bounds how long an unused entry lingers.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" default:"true"`
	MethodList   []string      `env:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" default:"1048576"`

	Methods map[string]bool
}

// LoadCacheConfig reads the CACHE_* variables. Methods are upper-cased.
func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := env.Load(&c, &env.Options{SliceSep: ","}); err != nil {
		return c, fmt.Errorf("load cache config: %w", err)
	}
	c.Methods = parseMethods(c.MethodList)
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c, nil
}

func parseMethods(list []string) map[string]bool {
	m := map[string]bool{}
	for _, p := range list {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
