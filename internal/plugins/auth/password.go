package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing any of them invalidates every stored hash,
// since the stored format records only the salt and the digest.
const (
	PasswordIterations = 100_000
	PasswordKeyLen     = sha256.Size
	PasswordSaltBytes  = 16
)

// hashSeparator splits the salt from the digest in a stored hash.
const hashSeparator = ":"

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash hashes password under a fresh random salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches stored. A malformed stored
	// hash is a mismatch, not an error.
	Verify(password, stored string) bool
}

// PBKDF2Hasher implements PasswordHasher with PBKDF2-HMAC-SHA256. Stored
// hashes have the form "<hex salt>:<base64 digest>".
type PBKDF2Hasher struct{}

// NewPBKDF2Hasher creates a PBKDF2Hasher.
func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{}
}

// Hash generates a random salt and hashes password with it.
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	salt, err := generateSalt()
	if err != nil {
		return "", err
	}
	return h.HashWithSalt(password, salt), nil
}

// HashWithSalt hashes password with the given salt. The same inputs always
// produce the same output.
func (h *PBKDF2Hasher) HashWithSalt(password, salt string) string {
	digest := derive(password, salt)
	return salt + hashSeparator + base64.StdEncoding.EncodeToString(digest)
}

// Verify recomputes the digest with the stored salt and compares it in
// constant time.
func (h *PBKDF2Hasher) Verify(password, stored string) bool {
	salt, encoded, ok := strings.Cut(stored, hashSeparator)
	if !ok || salt == "" {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(expected) != PasswordKeyLen {
		return false
	}

	return subtle.ConstantTimeCompare(derive(password, salt), expected) == 1
}

// derive runs PBKDF2 over the password and the salt's string bytes.
func derive(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), PasswordIterations, PasswordKeyLen, sha256.New)
}

// generateSalt returns PasswordSaltBytes random bytes, hex-encoded.
func generateSalt() (string, error) {
	b := make([]byte, PasswordSaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// dummyPasswordHash is verified against when a login names an unknown email,
// so the unknown-email path costs the same PBKDF2 run as a wrong password.
// The all-zero digest cannot be produced by any password in practice.
//
//nolint:gosec // G101: not a credential.
const dummyPasswordHash = "00000000000000000000000000000000:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
