// Package store persists user credential records in a local embedded
// key-value store under named exclusive locks.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"authvault/internal/common"
)

// Role is the exhaustive role enumeration for user records.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles. Records are
// validated at the store boundary, not deeper.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// SecretEntry is one encrypted third-party credential attached to a user
// record. Ciphertext is an encoded cryptox.EncryptedBlob. UsageLimit of
// zero means unlimited.
type SecretEntry struct {
	ProviderID   string `json:"providerId"`
	Ciphertext   []byte `json:"ciphertext"`
	UsageCounter int    `json:"usageCounter"`
	UsageLimit   int    `json:"usageLimit"`
}

// UserRecord is the persisted credential record. ID is a UUID v4 in
// textual form, generated at creation and immutable. A record is
// discoverable only by ID or by a linear scan matching TokenHash.
type UserRecord struct {
	ID           string        `json:"id"`
	TokenHash    string        `json:"tokenHash"`
	Secrets      []SecretEntry `json:"secrets"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastAccessAt time.Time     `json:"lastAccessAt"`
	Role         Role          `json:"role"`
	Permissions  []string      `json:"permissions"`
}

// DefaultPermissions is granted to records created without an explicit
// permission set. Permissions are stored and surfaced but not currently
// enforced by any caller.
var DefaultPermissions = []string{"read:dashboard"}

// AdminPermissions is the elevated set granted to bootstrap admins.
var AdminPermissions = []string{"read:dashboard", "manage:users", "manage:secrets"}

// validateID rejects identifiers that are not syntactically UUIDs before
// they reach the underlying store, as a defense against key injection.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("record id %q: %w", id, common.ErrValidation)
	}
	return nil
}
