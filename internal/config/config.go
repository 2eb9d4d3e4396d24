// Package config loads the service configuration. Values come from a
// .env file (godotenv), then the process environment (go-simpler env
// struct tags with defaults), then an optional YAML file whose keys
// override both.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/film-festival/internal/database"
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.
type Config struct {
	Env         string `env:"APP_ENV" default:"development" yaml:"env"`
	Port        string `env:"APP_PORT" default:"8080" yaml:"port"`
	StoreDriver string `env:"STORE_DRIVER" default:"mysql" yaml:"store_driver"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" default:"true" yaml:"auto_migrate"`

	DB   DBConfig   `yaml:"db"`
	Auth AuthConfig `yaml:"auth"`

	AMQPURL     string `env:"AMQP_URL" yaml:"amqp_url"` // empty disables activity events
	ActivityLog string `env:"ACTIVITY_LOG" default:"logs/activity.log" yaml:"activity_log"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" default:"text" yaml:"log_format"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" default:"5s" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s" yaml:"shutdown_timeout"`
}

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
	User            string        `env:"DB_USER" default:"root" yaml:"user"`
	Pass            string        `env:"DB_PASS" yaml:"pass"`
	Host            string        `env:"DB_HOST" default:"127.0.0.1" yaml:"host"`
	Port            string        `env:"DB_PORT" default:"3306" yaml:"port"`
	Name            string        `env:"DB_NAME" default:"film_festival" yaml:"name"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" default:"25" yaml:"max_open_conns"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" default:"25" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" default:"30m" yaml:"conn_max_lifetime"`
}

// Database converts the settings for database.Open.
func (c DBConfig) Database() database.Config {
	return database.Config{
		User:            c.User,
		Password:        c.Pass,
		Host:            c.Host,
		Port:            c.Port,
		Name:            c.Name,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET" yaml:"jwt_secret"`
	AccessTTL   time.Duration `env:"ACCESS_TOKEN_TTL" default:"15m" yaml:"access_ttl"`
	RefreshTTL  time.Duration `env:"REFRESH_TOKEN_TTL" default:"168h" yaml:"refresh_ttl"`
	BcryptCost  int           `env:"BCRYPT_COST" default:"10" yaml:"bcrypt_cost"`
	AdminEmails []string      `env:"ADMIN_EMAILS" yaml:"admin_emails"`
}

// Load reads .env, the environment and, when path is not empty, the
// YAML file at path, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}
	if path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overlayFile decodes the YAML file at path onto cfg. Keys missing from
// the file keep the value loaded from the environment.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, c.StoreDriver)
	}
	if c.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	return nil
}
