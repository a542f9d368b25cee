package config

import (
	"encoding/json"
	"os"
	"time"

	"authvault/internal/flagx"
	"authvault/internal/timex"
)

// JsonConfig is an intermediate DTO tailored for JSON unmarshalling. It
// uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN          string         `json:"database_dsn"`
	KeyPrefix            string         `json:"key_prefix"`
	KDFIterations        int            `json:"kdf_iterations"`
	RateLimitMaxAttempts int            `json:"rate_limit_max_attempts"`
	RateLimitWindow      timex.Duration `json:"rate_limit_window"`
	RateLimitLockout     timex.Duration `json:"rate_limit_lockout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no file is named, nothing
// is loaded. An unreadable or invalid file panics: a named config file
// that cannot be applied is a deployment error, not a condition to run
// through.
//
// The bootstrap-admin secret deliberately has no JSON field; it only
// arrives through the environment.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.KeyPrefix != "" {
		config.KeyPrefix = c.KeyPrefix
	}
	if c.KDFIterations > 0 {
		config.KDFIterations = c.KDFIterations
	}
	if c.RateLimitMaxAttempts > 0 {
		config.RateLimitMaxAttempts = c.RateLimitMaxAttempts
	}
	if c.RateLimitWindow.Duration > 0 {
		config.RateLimitWindow = time.Duration(c.RateLimitWindow.Duration)
	}
	if c.RateLimitLockout.Duration > 0 {
		config.RateLimitLockout = time.Duration(c.RateLimitLockout.Duration)
	}
}
