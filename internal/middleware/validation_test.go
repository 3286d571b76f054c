package middleware

import (
	"strings"
	"testing"
)

func TestValidateKeyName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty is valid", "", nil},
		{"simple name", "ci-deploy", nil},
		{"with spaces and dots", "prod key v1.2", nil},
		{"too long", strings.Repeat("a", MaxKeyNameLength+1), ErrKeyNameTooLong},
		{"control characters", "key\nname", ErrKeyNameInvalid},
		{"shell metacharacters", "key;rm -rf", ErrKeyNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := ValidateKeyName(tt.input); err != tt.wantErr {
				t.Errorf("ValidateKeyName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple address", "a@example.com", true},
		{"subdomain", "a@mail.example.com", true},
		{"plus addressing", "a+tag@example.com", true},
		{"missing at", "example.com", false},
		{"missing domain dot", "a@localhost", false},
		{"embedded space", "a b@example.com", false},
		{"empty", "", false},
		{"too long", strings.Repeat("a", MaxEmailLength) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateEmail(tt.input)
			if tt.valid && err != nil {
				t.Errorf("ValidateEmail(%q) = %v, want nil", tt.input, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateEmail(%q) = nil, want error", tt.input)
			}
		})
	}
}

func TestValidateKeyExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		days    int
		wantErr error
	}{
		{"zero means no expiry", 0, nil},
		{"one day", 1, nil},
		{"max", MaxKeyExpiryDays, nil},
		{"negative", -1, ErrExpiryOutOfRange},
		{"over max", MaxKeyExpiryDays + 1, ErrExpiryOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := ValidateKeyExpiry(tt.days); err != tt.wantErr {
				t.Errorf("ValidateKeyExpiry(%d) = %v, want %v", tt.days, err, tt.wantErr)
			}
		})
	}
}

func TestValidateScopes(t *testing.T) {
	t.Parallel()

	known := []string{"read", "write", "admin"}

	if err := ValidateScopes([]string{"read", "write"}, known); err != nil {
		t.Errorf("valid scopes rejected: %v", err)
	}
	if err := ValidateScopes(nil, known); err != nil {
		t.Errorf("empty scopes rejected: %v", err)
	}
	if err := ValidateScopes([]string{"read", "delete"}, known); err != ErrScopeUnknown {
		t.Errorf("unknown scope error = %v, want ErrScopeUnknown", err)
	}
}
