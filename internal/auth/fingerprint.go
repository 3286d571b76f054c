package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/edgelink/edgelink/internal/model"
)

// FingerprintFunc derives a context fingerprint from the current request.
// The same function must be used bit-for-bit at token issuance, so it is
// injected rather than hard-wired. RequestFingerprint is the reference
// implementation.
type FingerprintFunc func(r *http.Request) string

// RequestFingerprint hashes the client network origin and user-agent.
// Tokens minted with this derivation are rejected when replayed from a
// different origin or client.
func RequestFingerprint(r *http.Request) string {
	h := sha256.New()
	h.Write([]byte(clientIP(r)))
	h.Write([]byte{0})
	h.Write([]byte(r.UserAgent()))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// FingerprintMatches compares the fingerprint embedded in token claims
// against the one derived from the current request. Identities carrying
// the api_key sentinel are exempt: API keys are not context-bound.
func FingerprintMatches(claimed, derived string) bool {
	if claimed == model.FingerprintTagAPIKey {
		return true
	}
	if claimed == "" || derived == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claimed), []byte(derived)) == 1
}

// clientIP extracts the client IP, honoring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
