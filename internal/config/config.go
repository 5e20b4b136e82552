// Package config provides configuration management for the race settlement service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Settlement SettlementConfig `mapstructure:"settlement" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,storagedriver"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Port                int     `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int     `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int     `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	BetRateLimit        float64 `mapstructure:"bet_rate_limit" validate:"gte=0"` // requests per second per client, 0 disables
	BetRateBurst        int     `mapstructure:"bet_rate_burst" validate:"gte=0"`
}

// SettlementConfig represents settlement engine configuration
type SettlementConfig struct {
	AutoSettleEnabled bool   `mapstructure:"auto_settle_enabled"`
	AutoSettleCron    string `mapstructure:"auto_settle_cron" validate:"omitempty,cronspec"`
	LockTTLSeconds    int    `mapstructure:"lock_ttl_seconds" validate:"required,gt=0"`
	LockWaitSeconds   int    `mapstructure:"lock_wait_seconds" validate:"required,gt=0"`
	RandomSeed        int64  `mapstructure:"random_seed"` // 0 seeds from the clock
}

// RedisConfig represents the distributed race lock backend
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// KafkaConfig represents event publishing configuration
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	BetPlacedTopic   string   `mapstructure:"bet_placed_topic"`
	RaceSettledTopic string   `mapstructure:"race_settled_topic"`
}

// CacheConfig represents query cache configuration
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether the Postgres store is selected
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == "postgres"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LockTTL returns the race lock lease duration
func (s SettlementConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

// LockWait returns how long to wait for a contended race lock
func (s SettlementConfig) LockWait() time.Duration {
	return time.Duration(s.LockWaitSeconds) * time.Second
}

// TTL returns the query cache time-to-live
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
