// Package config defines the top-level configuration for the swap router
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SWAPD_* environment variables.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Engine      EngineConfig      `toml:"engine"`
	Venues      VenuesConfig      `toml:"venues"`
	Execution   ExecutionConfig   `toml:"execution"`
	Attestation AttestationConfig `toml:"attestation"`
	Archive     ArchiveConfig     `toml:"archive"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"` // empty disables auth
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// PostgresConfig holds PostgreSQL connection parameters. When Enabled is
// false the service runs on in-memory stores.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the API rate limiter.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for archive mode.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds the dispatcher's admission and retry parameters.
type EngineConfig struct {
	Workers           int `toml:"workers"`
	RateLimit         int `toml:"rate_limit"`
	RateWindowSeconds int `toml:"rate_window_seconds"`
	MaxAttempts       int `toml:"max_attempts"`
	BackoffBaseMs     int `toml:"backoff_base_ms"`
}

// VenueConfig holds one simulated venue's sampling parameters.
type VenueConfig struct {
	Low          float64 `toml:"low"`
	High         float64 `toml:"high"`
	FeeRate      float64 `toml:"fee_rate"`
	MinLatencyMs int     `toml:"min_latency_ms"`
	MaxLatencyMs int     `toml:"max_latency_ms"`
}

// VenuesConfig holds the parameters for both simulated venues.
type VenuesConfig struct {
	BasePrice float64     `toml:"base_price"`
	Raydium   VenueConfig `toml:"raydium"`
	Meteora   VenueConfig `toml:"meteora"`
}

// ExecutionConfig holds the settlement simulator's tunables.
type ExecutionConfig struct {
	FailureRate  float64 `toml:"failure_rate"`
	MinLatencyMs int     `toml:"min_latency_ms"`
	MaxLatencyMs int     `toml:"max_latency_ms"`
}

// AttestationConfig holds the optional settlement attestation key. All
// fields empty disables attestation.
type AttestationConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ArchiveConfig holds archive-mode parameters.
type ArchiveConfig struct {
	CutoffDays int `toml:"cutoff_days"`
}

// Defaults returns a Config populated with sensible defaults for every
// field the TOML file may omit.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			RateLimitPerMinute: 600,
		},
		Postgres: PostgresConfig{
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Engine: EngineConfig{
			Workers:           10,
			RateLimit:         100,
			RateWindowSeconds: 60,
			MaxAttempts:       3,
			BackoffBaseMs:     1000,
		},
		Venues: VenuesConfig{
			BasePrice: 150.0,
			Raydium: VenueConfig{
				Low: 0.98, High: 1.03, FeeRate: 0.0025,
				MinLatencyMs: 50, MaxLatencyMs: 150,
			},
			Meteora: VenueConfig{
				Low: 0.97, High: 1.04, FeeRate: 0.002,
				MinLatencyMs: 50, MaxLatencyMs: 150,
			},
		},
		Execution: ExecutionConfig{
			FailureRate:  0.02,
			MinLatencyMs: 300,
			MaxLatencyMs: 800,
		},
		Archive: ArchiveConfig{
			CutoffDays: 30,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would prevent
// startup.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "archive":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	if c.Engine.Workers <= 0 {
		return fmt.Errorf("config: engine workers must be positive")
	}
	if c.Engine.RateLimit <= 0 {
		return fmt.Errorf("config: engine rate_limit must be positive")
	}
	if c.Engine.MaxAttempts <= 0 {
		return fmt.Errorf("config: engine max_attempts must be positive")
	}

	if c.Venues.BasePrice <= 0 {
		return fmt.Errorf("config: venues base_price must be positive")
	}
	for name, v := range map[string]VenueConfig{"raydium": c.Venues.Raydium, "meteora": c.Venues.Meteora} {
		if v.Low <= 0 || v.High <= v.Low {
			return fmt.Errorf("config: venue %s bounds must satisfy 0 < low < high", name)
		}
		if v.FeeRate < 0 || v.FeeRate >= 1 {
			return fmt.Errorf("config: venue %s fee_rate must be in [0, 1)", name)
		}
	}

	if c.Execution.FailureRate < 0 || c.Execution.FailureRate >= 1 {
		return fmt.Errorf("config: execution failure_rate must be in [0, 1)")
	}

	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres enabled but neither dsn nor host set")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis enabled but addr not set")
	}

	if strings.ToLower(c.Mode) == "archive" && c.S3.Bucket == "" {
		return fmt.Errorf("config: archive mode requires s3 bucket")
	}

	return nil
}
