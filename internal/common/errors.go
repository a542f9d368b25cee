// Package common defines shared constants and sentinel errors used across
// authvault components. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Store-level errors.
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// Crypto errors. ErrIntegrity means an authenticated-decryption tag
	// did not verify: the blob was tampered with or the passphrase is
	// wrong. The secret is unrecoverable under the given passphrase.
	ErrIntegrity = errors.New("integrity check failed")

	// Auth errors. ErrAuthFailed is deliberately generic: it does not
	// distinguish an unknown token from a wrong bootstrap secret.
	ErrAuthFailed = errors.New("authentication failed")

	// Secret usage errors.
	ErrUsageLimit = errors.New("secret usage limit reached")
)

// RateLimitedError is returned when the login rate limiter rejects an
// attempt. It is distinct from ErrAuthFailed and carries the number of
// seconds the caller must wait before retrying.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSeconds)
}
