// Package secrets manages encrypted third-party credentials attached to
// user records: encrypt-at-rest on add, decrypt with usage accounting on
// reveal.
package secrets

import (
	"context"
	"fmt"

	"authvault/internal/common"
	"authvault/internal/cryptox"
	"authvault/internal/logging"
	"authvault/internal/store"
)

type Service struct {
	records *store.RecordStore
	logger  logging.Logger
}

func NewService(records *store.RecordStore, logger logging.Logger) *Service {
	return &Service{records: records, logger: logger}
}

// Add encrypts plaintext under passphrase and attaches it to the user's
// record as a SecretEntry for providerID, replacing any existing entry
// for the same provider. usageLimit of zero means unlimited reveals.
// The read-modify-write runs under the record's exclusive lock.
func (s *Service) Add(ctx context.Context, userID, providerID, plaintext, passphrase string, usageLimit int) error {
	if providerID == "" {
		return fmt.Errorf("empty provider id: %w", common.ErrValidation)
	}

	blob, err := cryptox.Encrypt(plaintext, passphrase)
	if err != nil {
		return err
	}
	data, err := cryptox.EncodeBlob(blob)
	if err != nil {
		return err
	}

	_, err = s.records.Mutate(ctx, userID, func(rec *store.UserRecord) error {
		entry := store.SecretEntry{
			ProviderID: providerID,
			Ciphertext: data,
			UsageLimit: usageLimit,
		}
		for i := range rec.Secrets {
			if rec.Secrets[i].ProviderID == providerID {
				rec.Secrets[i] = entry
				return nil
			}
		}
		rec.Secrets = append(rec.Secrets, entry)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "secret stored", "user_id", userID, "provider_id", providerID)
	return nil
}

// Reveal decrypts the stored secret for providerID. A reveal counts
// against the entry's usage limit; once the counter reaches the limit,
// further reveals fail with common.ErrUsageLimit. A wrong passphrase or
// tampered blob surfaces common.ErrIntegrity and does not consume usage.
func (s *Service) Reveal(ctx context.Context, userID, providerID, passphrase string) (string, error) {
	var plaintext string
	_, err := s.records.Mutate(ctx, userID, func(rec *store.UserRecord) error {
		for i := range rec.Secrets {
			entry := &rec.Secrets[i]
			if entry.ProviderID != providerID {
				continue
			}
			if entry.UsageLimit > 0 && entry.UsageCounter >= entry.UsageLimit {
				return fmt.Errorf("provider %s: %w", providerID, common.ErrUsageLimit)
			}
			blob, err := cryptox.DecodeBlob(entry.Ciphertext)
			if err != nil {
				return err
			}
			plain, err := cryptox.Decrypt(blob, passphrase)
			if err != nil {
				return err
			}
			entry.UsageCounter++
			plaintext = plain
			return nil
		}
		return fmt.Errorf("provider %s: %w", providerID, common.ErrNotFound)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "secret revealed", "user_id", userID, "provider_id", providerID)
	return plaintext, nil
}

// Remove deletes the SecretEntry for providerID. Removing an absent
// entry is a no-op.
func (s *Service) Remove(ctx context.Context, userID, providerID string) error {
	_, err := s.records.Mutate(ctx, userID, func(rec *store.UserRecord) error {
		kept := rec.Secrets[:0]
		for _, entry := range rec.Secrets {
			if entry.ProviderID != providerID {
				kept = append(kept, entry)
			}
		}
		rec.Secrets = kept
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "secret removed", "user_id", userID, "provider_id", providerID)
	return nil
}
