package auth

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestHashWithSalt_Deterministic(t *testing.T) {
	h := NewPBKDF2Hasher()

	first := h.HashWithSalt("hunter2hunter2", "deadbeef")
	second := h.HashWithSalt("hunter2hunter2", "deadbeef")
	if first != second {
		t.Errorf("expected identical hashes, got %q and %q", first, second)
	}
	if !strings.HasPrefix(first, "deadbeef:") {
		t.Errorf("expected hash to start with salt, got %q", first)
	}
}

func TestHashWithSalt_DifferentInputs(t *testing.T) {
	h := NewPBKDF2Hasher()

	base := h.HashWithSalt("password-one", "salt-a")
	if got := h.HashWithSalt("password-two", "salt-a"); got == base {
		t.Error("expected different passwords to produce different hashes")
	}
	if got := h.HashWithSalt("password-one", "salt-b"); got == base {
		t.Error("expected different salts to produce different hashes")
	}
}

func TestHash_Format(t *testing.T) {
	h := NewPBKDF2Hasher()

	stored, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	salt, digest, ok := strings.Cut(stored, ":")
	if !ok {
		t.Fatalf("expected salt:digest, got %q", stored)
	}
	if len(salt) != PasswordSaltBytes*2 {
		t.Errorf("expected %d hex chars of salt, got %d", PasswordSaltBytes*2, len(salt))
	}
	raw, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		t.Fatalf("digest is not standard base64: %v", err)
	}
	if len(raw) != PasswordKeyLen {
		t.Errorf("expected %d-byte digest, got %d", PasswordKeyLen, len(raw))
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	h := NewPBKDF2Hasher()

	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Error("expected fresh salts to produce different hashes")
	}
}

func TestVerify(t *testing.T) {
	h := NewPBKDF2Hasher()
	stored := h.HashWithSalt("my-secret-password", "0123456789abcdef")

	if !h.Verify("my-secret-password", stored) {
		t.Error("expected correct password to verify")
	}
	if h.Verify("my-secret-passwore", stored) {
		t.Error("expected wrong password to fail verification")
	}
	if h.Verify("", stored) {
		t.Error("expected empty password to fail verification")
	}
}

func TestVerify_MalformedStored(t *testing.T) {
	h := NewPBKDF2Hasher()
	valid := h.HashWithSalt("password", "abc")
	_, digest, _ := strings.Cut(valid, ":")

	tests := []struct {
		name   string
		stored string
	}{
		{"empty string", ""},
		{"no separator", "abcdef"},
		{"empty salt", ":" + digest},
		{"empty digest", "abc:"},
		{"not base64", "abc:!!!not-base64!!!"},
		{"short digest", "abc:" + base64.StdEncoding.EncodeToString([]byte("short"))},
		{"extra separator", valid + ":extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Verify("password", tt.stored) {
				t.Errorf("expected %q to fail verification", tt.stored)
			}
		})
	}
}

func TestVerify_DummyHashRejectsEverything(t *testing.T) {
	h := NewPBKDF2Hasher()

	for _, pw := range []string{"", "password", "00000000000000000000000000000000"} {
		if h.Verify(pw, dummyPasswordHash) {
			t.Errorf("expected dummy hash to reject %q", pw)
		}
	}
}
