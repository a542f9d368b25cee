// Package cryptox implements the credential-protection primitives:
// passphrase-derived symmetric encryption of small secrets, salted
// iterated hashing of bearer tokens, and constant-time comparison.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"authvault/internal/common"
	"authvault/internal/shared"
)

const (
	// KDFIterations is the default PBKDF2-SHA256 iteration count used for
	// both secret-encryption keys and token digests.
	KDFIterations = 120_000

	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

// EncryptedBlob carries one encrypted secret. Salt and Nonce are fresh
// random values per encryption call and must never be reused across
// encryptions under the same passphrase. Iterations records the KDF cost
// so decryption can re-derive the key without external state.
type EncryptedBlob struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Iterations int    `json:"iterations"`
}

// DeriveKey derives a 256-bit key from a passphrase and salt using
// PBKDF2 with a SHA-256 core.
func DeriveKey(passphrase, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, keySize, sha256.New)
}

// Encrypt encrypts secret under a key derived from passphrase.
//
// A fresh random 16-byte salt and 12-byte nonce are generated on every
// call, so two encryptions of the same secret yield different blobs.
// The ciphertext includes the AES-GCM authentication tag.
func Encrypt(secret, passphrase string) (*EncryptedBlob, error) {
	salt := shared.GenerateRandByteArray(saltSize)
	nonce := shared.GenerateRandByteArray(nonceSize)

	key := DeriveKey([]byte(passphrase), salt, KDFIterations)
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	ciphertext := aesgcm.Seal(nil, nonce, []byte(secret), nil)

	return &EncryptedBlob{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Iterations: KDFIterations,
	}, nil
}

// Decrypt re-derives the key from the blob's salt and iteration count and
// decrypts the ciphertext. A tag mismatch (tampered blob or wrong
// passphrase) returns common.ErrIntegrity; no partial plaintext is ever
// returned.
func Decrypt(blob *EncryptedBlob, passphrase string) (string, error) {
	if len(blob.Salt) != saltSize || len(blob.Nonce) != nonceSize {
		return "", fmt.Errorf("bad salt/nonce size: %w", common.ErrValidation)
	}

	key := DeriveKey([]byte(passphrase), blob.Salt, blob.Iterations)
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", common.ErrIntegrity)
	}
	return string(plaintext), nil
}

// EncodeBlob serializes a blob to JSON for storage.
func EncodeBlob(blob *EncryptedBlob) ([]byte, error) {
	return json.Marshal(blob)
}

// DecodeBlob parses a stored blob and rejects one whose salt or nonce
// length does not match the scheme's fixed sizes.
func DecodeBlob(data []byte) (*EncryptedBlob, error) {
	blob := &EncryptedBlob{}
	if err := json.Unmarshal(data, blob); err != nil {
		return nil, fmt.Errorf("decode blob: %w", common.ErrValidation)
	}
	if len(blob.Salt) != saltSize || len(blob.Nonce) != nonceSize || blob.Iterations <= 0 {
		return nil, fmt.Errorf("blob field sizes: %w", common.ErrValidation)
	}
	return blob, nil
}
