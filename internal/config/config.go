package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// mongodb://, postgres:// or bolt:// connection string
	DatabaseURL string `toml:"database_url"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// redis, used for rate limiting only; the local limiter is used when not set
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// write requests (POST, PUT, DELETE) allowed per minute per client, 0 disables the limiter
	WriteRateLimitPerMin int `toml:"write_rate_limit_per_min"`

	// metrics server is not started when the port is empty
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	CorsAllowedOrigins []string `toml:"cors_allowed_origins"`

	GopsEnabled bool `toml:"gops_enabled"`
}

type Toml struct {
	Development *Config
	Production  *Config
	Test        *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", EnvDevelopment:
		cfg = t.Development
		env = EnvDevelopment
	case "prod", EnvProduction:
		cfg = t.Production
		env = EnvProduction
	case EnvTest:
		cfg = t.Test
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] not found", env)
	}
	cfg.Environment = env

	return cfg, nil
}

// Load reads the TOML config file and picks the section of the given env.
// DATABASE_URL (TEST_DATABASE_URL in test env) and PORT env vars override the file.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	dbURLEnvVar := "DATABASE_URL"
	if c.Environment == EnvTest {
		dbURLEnvVar = "TEST_DATABASE_URL"
	}
	if dbURL := os.Getenv(dbURLEnvVar); dbURL != "" {
		c.DatabaseURL = dbURL
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PORT env var [%s]: %w", portStr, err)
		}
		c.Port = port
	}

	return nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url not set for env [%s]", c.Environment)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.WriteRateLimitPerMin < 0 {
		return fmt.Errorf("invalid write rate limit: %d", c.WriteRateLimitPerMin)
	}
	return nil
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != "" && c.RedisPort != ""
}
