// Package config handles configuration for authvault, including defaults,
// JSON overlay, command-line flags, and the bootstrap-admin environment
// secret.
package config

import (
	"time"

	"authvault/internal/cryptox"
	"authvault/internal/ratelimit"
)

// BootstrapSecretEnv is the environment variable carrying the
// bootstrap-admin credential. It is read once here at load time and
// injected as a struct field; nothing deeper reads the environment.
const BootstrapSecretEnv = "AUTHVAULT_ADMIN_SECRET"

// Config holds runtime settings for authvault.
//
// Fields:
//   - DatabaseDSN: path to the local sqlite database file.
//   - KeyPrefix: logical key prefix for the record store.
//   - BootstrapAdminSecret: the out-of-band admin credential. Empty means
//     the bootstrap path always fails closed.
//   - KDFIterations: PBKDF2 cost for token hashing and secret encryption.
//   - RateLimitMaxAttempts / RateLimitWindow / RateLimitLockout: login
//     limiter thresholds.
type Config struct {
	DatabaseDSN          string
	KeyPrefix            string
	BootstrapAdminSecret string
	KDFIterations        int
	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration
	RateLimitLockout     time.Duration
}

// LoadDefaults populates Config with the standard local-deployment
// defaults. The bootstrap secret has no default: absence fails closed.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "authvault.db"
	c.KeyPrefix = "authvault"
	c.KDFIterations = cryptox.KDFIterations
	c.RateLimitMaxAttempts = ratelimit.DefaultMaxAttempts
	c.RateLimitWindow = ratelimit.DefaultWindow
	c.RateLimitLockout = ratelimit.DefaultLockout
}

// RateLimit returns the limiter configuration slice of the Config.
func (c *Config) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		MaxAttempts: c.RateLimitMaxAttempts,
		Window:      c.RateLimitWindow,
		Lockout:     c.RateLimitLockout,
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, command-line flags, and finally the
// bootstrap-secret environment variable.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
