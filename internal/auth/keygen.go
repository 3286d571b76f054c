package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
)

// Key format: elk_{secret}
// Example: elk_IKbF09dsetsopMVoPaZw0m2RfPc9gM6S
// The first 8 characters of the secret double as the lookup prefix.
const (
	// KeyPrefix is the reserved prefix that classifies a credential as an
	// API key during extraction.
	KeyPrefix = "elk_"
	// KeySecretLen is the length of the base62 secret.
	KeySecretLen = 32
	// KeyLookupLen is how many secret characters form the store lookup prefix.
	KeyLookupLen = 8
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	// keyFormatRegex validates the key format.
	keyFormatRegex = regexp.MustCompile(`^elk_([A-Za-z0-9]{32})$`)
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // Argon2id hash for storage
	Prefix    string // 8-char lookup prefix
}

// GenerateAPIKey creates a new API key.
// Returns the plaintext key (to show once), hash (to store), and prefix
// (for lookup).
func GenerateAPIKey() (*GeneratedKey, error) {
	secret, err := randomBase62(KeySecretLen)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := KeyPrefix + secret

	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    secret[:KeyLookupLen],
	}, nil
}

// ParsedKey contains the parsed parts of an API key.
type ParsedKey struct {
	Secret string
	Prefix string
}

// ParseAPIKey extracts the components from a plaintext API key.
// Returns an error if the format is invalid.
func ParseAPIKey(key string) (*ParsedKey, error) {
	matches := keyFormatRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, ErrInvalidKeyFormat
	}

	secret := matches[1]
	return &ParsedKey{
		Secret: secret,
		Prefix: secret[:KeyLookupLen],
	}, nil
}

// ValidateKeyFormat checks if the key matches the expected format.
func ValidateKeyFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}

// randomBase62 returns n characters drawn uniformly from the base62
// alphabet using crypto/rand with rejection sampling.
func randomBase62(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// Reject bytes beyond the largest multiple of 62 to avoid
			// modulo bias.
			if b >= 248 {
				continue
			}
			out = append(out, base62Alphabet[int(b)%len(base62Alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
