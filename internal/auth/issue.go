package auth

import (
	"context"

	"authvault/internal/shared"
	"authvault/internal/store"
)

// tokenByteLength is the entropy of an issued bearer token; the textual
// token is twice this in hex characters.
const tokenByteLength = 32

// IssueToken mints a fresh opaque bearer token for a new record with the
// given role (admin tooling: the explicit token-generation action in the
// record lifecycle). The raw token is returned exactly once and is never
// stored or logged; only its salted hash persists.
func (s *Service) IssueToken(ctx context.Context, role store.Role, permissions ...string) (string, *store.UserRecord, error) {
	rawToken, err := shared.MakeRandHexString(tokenByteLength)
	if err != nil {
		return "", nil, err
	}

	hash, err := s.hasher.Hash(rawToken)
	if err != nil {
		return "", nil, err
	}

	rec, err := s.records.Create(ctx, hash, role, permissions...)
	if err != nil {
		return "", nil, err
	}

	s.audit(ctx, "token_issued", "user_id", rec.ID, "role", rec.Role)
	return rawToken, rec, nil
}
