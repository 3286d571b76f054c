package auth

import (
	"net/http/httptest"
	"testing"
)

func TestRequestFingerprint_Stable(t *testing.T) {
	t.Parallel()

	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "203.0.113.7:1234"
	r1.Header.Set("User-Agent", "client/1.0")

	fp1 := RequestFingerprint(r1)
	if fp1 == "" {
		t.Fatal("fingerprint should not be empty")
	}
	if len(fp1) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(fp1))
	}

	// Same request twice yields the same fingerprint.
	if fp1 != RequestFingerprint(r1) {
		t.Error("fingerprint should be deterministic")
	}
}

func TestRequestFingerprint_ProxyHeaders(t *testing.T) {
	t.Parallel()

	direct := httptest.NewRequest("GET", "/", nil)
	direct.RemoteAddr = "10.0.0.1:1111"
	direct.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	direct.Header.Set("User-Agent", "client/1.0")

	proxied := httptest.NewRequest("GET", "/", nil)
	proxied.RemoteAddr = "10.0.0.2:2222"
	proxied.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	proxied.Header.Set("User-Agent", "client/1.0")

	// The derivation keys on the original client, not the proxy hop.
	if RequestFingerprint(direct) != RequestFingerprint(proxied) {
		t.Error("same XFF client through different proxies should match")
	}
}

func TestRequestFingerprint_VariesWithClient(t *testing.T) {
	t.Parallel()

	base := httptest.NewRequest("GET", "/", nil)
	base.RemoteAddr = "203.0.113.7:1234"
	base.Header.Set("User-Agent", "client/1.0")

	otherIP := httptest.NewRequest("GET", "/", nil)
	otherIP.RemoteAddr = "203.0.113.8:1234"
	otherIP.Header.Set("User-Agent", "client/1.0")

	otherUA := httptest.NewRequest("GET", "/", nil)
	otherUA.RemoteAddr = "203.0.113.7:1234"
	otherUA.Header.Set("User-Agent", "client/2.0")

	if RequestFingerprint(base) == RequestFingerprint(otherIP) {
		t.Error("different origin should change fingerprint")
	}
	if RequestFingerprint(base) == RequestFingerprint(otherUA) {
		t.Error("different user-agent should change fingerprint")
	}
}

func TestFingerprintMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		claimed string
		derived string
		want    bool
	}{
		{"exact match", "abc123", "abc123", true},
		{"mismatch", "abc123", "def456", false},
		{"api_key sentinel bypasses guard", "api_key", "anything", true},
		{"empty claimed", "", "abc123", false},
		{"empty derived", "abc123", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FingerprintMatches(tt.claimed, tt.derived); got != tt.want {
				t.Errorf("FingerprintMatches(%q, %q) = %v, want %v", tt.claimed, tt.derived, got, tt.want)
			}
		})
	}
}
