package config

import (
	"flag"
	"os"
	"time"

	"authvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path to the local database file
//	-k string   key prefix for the record store
//	-i int      KDF iteration count
//	-m int      rate-limit max attempts
//	-w int      rate-limit window, minutes
//	-l int      rate-limit lockout, minutes
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with subcommand flags.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-k", "-i", "-m", "-w", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database file path")
	fs.StringVar(&config.KeyPrefix, "k", config.KeyPrefix, "record store key prefix")
	fs.IntVar(&config.KDFIterations, "i", config.KDFIterations, "KDF iteration count")
	fs.IntVar(&config.RateLimitMaxAttempts, "m", config.RateLimitMaxAttempts, "rate limit max attempts")

	window := fs.Int("w", int(config.RateLimitWindow.Minutes()), "rate limit window (in minutes)")
	lockout := fs.Int("l", int(config.RateLimitLockout.Minutes()), "rate limit lockout (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RateLimitWindow = time.Duration(*window) * time.Minute
	config.RateLimitLockout = time.Duration(*lockout) * time.Minute
}

// parseEnv reads the bootstrap-admin secret. Absence leaves the field
// empty, which makes the admin bootstrap path fail closed.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv(BootstrapSecretEnv); ok {
		config.BootstrapAdminSecret = v
	}
}
