package config

// This file defines the Redis client constructor. Redis backs the
// response cache and the rate limiter; both degrade to pass-through
// when no client is available.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go-simpler.org/env"
)

// RedisConfig holds the Redis connection settings. Addr wins over
// Host and Port when both are set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`
	TLS      bool   `env:"REDIS_TLS" default:"false"`
	Disabled bool   `env:"REDIS_DISABLED" default:"false"`
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
	var c RedisConfig
	if err := env.Load(&c, nil); err != nil {
		return c, fmt.Errorf("load redis config: %w", err)
	}
	return c, nil
}

// Address returns the host:port to dial.
func (c RedisConfig) Address() string {
	switch {
	case c.Addr != "":
		return c.Addr
	case c.Host != "" && c.Port != "":
		return c.Host + ":" + c.Port
	default:
		return "localhost:6379"
	}
}

// NewRedisClient connects to Redis and pings it. It returns nil when
// Redis is disabled or unreachable; callers then skip caching and rate
// limiting.
func NewRedisClient(ctx context.Context, c RedisConfig) *redis.Client {
	if c.Disabled {
		return nil
	}
	opts := &redis.Options{
		Addr:     c.Address(),
		Password: c.Password,
		DB:       c.DB,
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
