package cryptox

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"authvault/internal/shared"
)

const hashAlgTag = "pbkdf2-sha256"

// dummySalt is used for equivalent-cost KDF passes on inputs that cannot
// be verified for real (malformed encodings, unconfigured bootstrap
// secret), so that failure paths do not return faster than success paths.
var dummySalt = []byte("authvault.dummy.")

// Hasher produces and verifies self-describing salted token hashes of the
// form
//
//	pbkdf2-sha256$<iterations>$<salt-hex>$<digest-hex>
//
// The iteration count is injected at construction so tests can lower the
// cost; production callers use cryptox.KDFIterations.
type Hasher struct {
	iterations int
}

func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = KDFIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash derives a salted digest of token with a fresh random 16-byte salt.
// Two calls with the same token yield different encodings that both
// verify.
func (h *Hasher) Hash(token string) (string, error) {
	salt := shared.GenerateRandByteArray(saltSize)
	digest := DeriveKey([]byte(token), salt, h.iterations)
	return fmt.Sprintf("%s$%d$%s$%s",
		hashAlgTag, h.iterations,
		hex.EncodeToString(salt), hex.EncodeToString(digest)), nil
}

// Verify recomputes the digest of token using the salt and iteration
// count parsed from encoded and compares in constant time.
//
// A malformed encoding (wrong tag, field count, or undecodable fields)
// still performs one equivalent-cost KDF pass before returning false, so
// parse failures are not observably faster than digest mismatches.
func (h *Hasher) Verify(token, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashAlgTag {
		return h.failSlow(token)
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return h.failSlow(token)
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil || len(salt) != saltSize {
		return h.failSlow(token)
	}
	want, err := hex.DecodeString(parts[3])
	if err != nil {
		return h.failSlow(token)
	}

	got := DeriveKey([]byte(token), salt, iterations)
	return ConstantTimeEqual(got, want)
}

// VerifyBootstrap compares a raw submitted token against the configured
// bootstrap-admin secret. The configured value is a plain secret, not an
// encoded hash, so the comparison is raw-to-raw and constant time; a
// dummy KDF pass keeps this path on the same latency budget as Verify.
// An empty configured secret always fails closed.
func (h *Hasher) VerifyBootstrap(token, configured string) bool {
	ok := h.failSlow(token) // always false, pays the KDF cost
	if configured == "" {
		return ok
	}
	return ConstantTimeEqual([]byte(token), []byte(configured))
}

// failSlow burns one KDF computation and returns false.
func (h *Hasher) failSlow(token string) bool {
	digest := DeriveKey([]byte(token), dummySalt, h.iterations)
	shared.WipeByteArray(digest)
	return false
}
