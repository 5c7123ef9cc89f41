package config

import (
	"fmt"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration for the users service.
type Config struct {
	AppEnv     string           `mapstructure:"app_env"`
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Fixture    FixtureConfig    `mapstructure:"fixture"`
	Pagination PaginationConfig `mapstructure:"pagination"`
}

// AppConfig describes the service identity.
type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// Addr returns the host:port pair the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the persistence backend for user records.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory sql"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN            string        `mapstructure:"dsn"`
	PoolSize       int           `mapstructure:"pool_size" validate:"min=1"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"min=0"`
}

// RedisConfig configures the optional Redis connection used for caching,
// rate limiting and idempotency keys.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"min=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"min=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"min=0"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"min=0"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

// LoggerConfig configures structured logging.
type LoggerConfig struct {
	Level  string        `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"oneof=text json"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotating log file next to stdout output.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"min=0,max=1"`
}

// RateLimitConfig configures per-client request limits. Forwarding headers
// such as X-Forwarded-For are honoured only when the peer is listed in
// TrustedProxies.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PerClient      RateLimitRule `mapstructure:"per_client"`
	Whitelist      []string      `mapstructure:"whitelist"`
	TrustedProxies []string      `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`
}

// RateLimitRule is a limit of requests over a window such as "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"min=0"`
	Window string `mapstructure:"window"`
}

// FixtureConfig points at the JSON file used for bulk loading users.
// An empty path selects the fixture bundled with the binary.
type FixtureConfig struct {
	Path string `mapstructure:"path"`
}

// PaginationConfig bounds the page size accepted by list endpoints.
type PaginationConfig struct {
	DefaultSize int `mapstructure:"default_size" validate:"min=1"`
	MaxSize     int `mapstructure:"max_size" validate:"min=1"`
}

func (c *Config) validateCrossFields() error {
	if c.Store.Backend == BackendSQL && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when store.backend is %q", BackendSQL)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	if c.Pagination.DefaultSize > c.Pagination.MaxSize {
		return fmt.Errorf("pagination.default_size must not exceed pagination.max_size")
	}
	if c.RateLimit.Enabled {
		if _, err := time.ParseDuration(c.RateLimit.PerClient.Window); err != nil {
			return fmt.Errorf("ratelimit.per_client.window: %w", err)
		}
	}
	return nil
}
