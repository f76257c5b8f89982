// Package config loads eventgraph settings from YAML and EVENTGRAPH_*
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/temporal"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Log       logging.LogConfig `mapstructure:"log"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Auth      AuthConfig        `mapstructure:"auth"`
	Partition partition.Config  `mapstructure:"partition"`
	Graph     graph.Options     `mapstructure:"graph"`
	Temporal  temporal.Options  `mapstructure:"temporal"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
	// RateLimit is the number of requests allowed per client per minute; 0
	// disables limiting.
	RateLimit int `mapstructure:"rate_limit"`
	// MaxEvents caps the events accepted in one dataset request.
	MaxEvents int `mapstructure:"max_events"`
}

// DatabaseConfig holds the sqlite run store settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds the static feature cache settings. When disabled an
// in-memory cache is used.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds optional bearer token authentication settings.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be non-negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}

	known := false
	for _, s := range partition.Strategies() {
		if s == c.Partition.Strategy {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("partition.strategy %q is not one of %v", c.Partition.Strategy, partition.Strategies())
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Temporal.Validate(); err != nil {
		return fmt.Errorf("temporal: %w", err)
	}
	return nil
}
