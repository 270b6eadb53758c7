// Package config loads and validates service configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded at process start. All values
// are immutable afterwards.
type Config struct {
	// ListenAddr is the HTTP listen address (e.g. :8080).
	ListenAddr string `mapstructure:"LDTT_LISTEN_ADDR"`
	// PGDSN is the PostgreSQL DSN for the account directory and, when Redis
	// is not configured, the revocation denylist.
	PGDSN string `mapstructure:"LDTT_PG_DSN"`
	// RedisAddr selects the Redis-backed denylist when non-empty.
	RedisAddr string `mapstructure:"LDTT_REDIS_ADDR"`
	// SignerKey is the shared HMAC-SHA-512 signing secret.
	SignerKey string `mapstructure:"LDTT_AUTH_SECRET"`
	// Issuer overrides the default iss claim when non-empty.
	Issuer string `mapstructure:"LDTT_AUTH_ISSUER"`
	// ValidDuration is the access token validity window in seconds.
	ValidDuration int `mapstructure:"LDTT_AUTH_VALID_DURATION"`
	// RefreshableDuration is the refresh grace window in seconds, measured
	// from issue time.
	RefreshableDuration int `mapstructure:"LDTT_AUTH_REFRESHABLE_DURATION"`
	// RateBurst and RatePerSec tune the per-IP token bucket.
	RateBurst  int `mapstructure:"LDTT_RATE_BURST"`
	RatePerSec int `mapstructure:"LDTT_RATE_PER_SEC"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine (e.g. in CI)

	v.AutomaticEnv()

	v.SetDefault("LDTT_LISTEN_ADDR", ":8080")
	v.SetDefault("LDTT_PG_DSN", "")
	v.SetDefault("LDTT_REDIS_ADDR", "")
	v.SetDefault("LDTT_AUTH_SECRET", "")
	v.SetDefault("LDTT_AUTH_ISSUER", "")
	v.SetDefault("LDTT_AUTH_VALID_DURATION", 3600)
	v.SetDefault("LDTT_AUTH_REFRESHABLE_DURATION", 36000)
	v.SetDefault("LDTT_RATE_BURST", 20)
	v.SetDefault("LDTT_RATE_PER_SEC", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SignerKey == "" {
		return errors.New("config: LDTT_AUTH_SECRET must be set")
	}
	// HMAC-SHA-512 keys shorter than the 64-byte hash output weaken the MAC.
	if len(c.SignerKey) < 64 {
		return fmt.Errorf("config: LDTT_AUTH_SECRET must be at least 64 bytes, got %d", len(c.SignerKey))
	}
	if c.ValidDuration <= 0 {
		return errors.New("config: LDTT_AUTH_VALID_DURATION must be positive")
	}
	if c.RefreshableDuration < c.ValidDuration {
		return errors.New("config: LDTT_AUTH_REFRESHABLE_DURATION must be at least the valid duration")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return errors.New("config: rate limit settings must be positive")
	}
	return nil
}

// Valid returns the validity window as a duration.
func (c *Config) Valid() time.Duration { return time.Duration(c.ValidDuration) * time.Second }

// Refreshable returns the refresh grace window as a duration.
func (c *Config) Refreshable() time.Duration {
	return time.Duration(c.RefreshableDuration) * time.Second
}
