package auth

import (
	"strings"
	"testing"
)

func TestHashKey_Format(t *testing.T) {
	t.Parallel()

	key := "elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S"

	hash, err := HashKey(key)
	if err != nil {
		t.Fatalf("HashKey failed: %v", err)
	}

	// Verify PHC format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", hash)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Errorf("Hash should have 6 parts, got: %d", len(parts))
	}

	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashKey_Uniqueness(t *testing.T) {
	t.Parallel()

	key := "elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S"

	hash1, err := HashKey(key)
	if err != nil {
		t.Fatalf("HashKey failed: %v", err)
	}

	hash2, err := HashKey(key)
	if err != nil {
		t.Fatalf("HashKey failed: %v", err)
	}

	// Same key should produce different hashes (different salts)
	if hash1 == hash2 {
		t.Error("Same key should produce different hashes due to random salt")
	}
}

func TestVerifyKey(t *testing.T) {
	t.Parallel()

	key := "elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S"

	hash, err := HashKey(key)
	if err != nil {
		t.Fatalf("HashKey failed: %v", err)
	}

	ok, err := VerifyKey(key, hash)
	if err != nil {
		t.Fatalf("VerifyKey failed: %v", err)
	}
	if !ok {
		t.Error("Correct key should verify")
	}

	ok, err = VerifyKey("elk_wrongwrongwrongwrongwrongwrong00", hash)
	if err != nil {
		t.Fatalf("VerifyKey failed: %v", err)
	}
	if ok {
		t.Error("Wrong key should not verify")
	}
}

func TestVerifyKey_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "garbage"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := VerifyKey("elk_anything", tt.hash); err == nil {
				t.Error("Expected error for invalid hash")
			}
		})
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	h1 := QuickHash("elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S")
	h2 := QuickHash("elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S")
	h3 := QuickHash("elk_different0000000000000000000000S")

	if h1 != h2 {
		t.Error("QuickHash should be deterministic")
	}
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 32 {
		t.Errorf("QuickHash length = %d, want 32", len(h1))
	}
}
