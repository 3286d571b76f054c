package middleware

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Validation limits.
const (
	// MaxKeyNameLength is the maximum length for an API key label.
	MaxKeyNameLength = 64

	// MaxEmailLength is the maximum length accepted for recipient
	// addresses (RFC 5321 path limit).
	MaxEmailLength = 254

	// MaxKeyExpiryDays caps requested API key lifetimes.
	MaxKeyExpiryDays = 365
)

// Validation errors.
var (
	ErrKeyNameTooLong   = errors.New("key name exceeds maximum length")
	ErrKeyNameInvalid   = errors.New("key name contains invalid characters")
	ErrEmailTooLong     = errors.New("email exceeds maximum length")
	ErrEmailInvalid     = errors.New("email address is invalid")
	ErrExpiryOutOfRange = errors.New("expiry must be between 1 and 365 days")
	ErrScopeUnknown     = errors.New("unknown scope")
)

// validKeyNamePattern matches valid API key label characters.
// Allowed: letters, digits, space, hyphen, underscore, dot
var validKeyNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 ._-]+$`)

// emailPattern is a pragmatic address check; deliverability is decided
// by the provider, not by us.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateKeyName validates a human-readable API key label.
func ValidateKeyName(name string) error {
	if name == "" {
		return nil // Empty is valid (key is unlabeled)
	}

	if len(name) > MaxKeyNameLength {
		return ErrKeyNameTooLong
	}

	if !validKeyNamePattern.MatchString(name) {
		return ErrKeyNameInvalid
	}

	return nil
}

// ValidateEmail validates a recipient address for outbound delivery.
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	// Reject non-ASCII local parts; the provider does not accept
	// internationalized addresses.
	for _, r := range email {
		if r > unicode.MaxASCII {
			return ErrEmailInvalid
		}
	}

	return nil
}

// ValidateKeyExpiry validates a requested key lifetime in days.
// Zero means no expiry.
func ValidateKeyExpiry(days int) error {
	if days == 0 {
		return nil
	}
	if days < 1 || days > MaxKeyExpiryDays {
		return ErrExpiryOutOfRange
	}
	return nil
}

// ValidateScopes checks each requested scope against the known set.
func ValidateScopes(scopes []string, known []string) error {
	for _, s := range scopes {
		found := false
		for _, k := range known {
			if strings.EqualFold(s, k) {
				found = true
				break
			}
		}
		if !found {
			return ErrScopeUnknown
		}
	}
	return nil
}
