package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenIssuer is stamped into minted tokens and required on verification.
const tokenIssuer = "edgelink"

// Typed verification failures. Callers treat all three as "no JWT
// identity" and fall through to anonymous; only the fingerprint guard
// downstream produces a hard rejection.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenClaims are the JWT claims issued at login/signup and consumed
// here for verification only.
type TokenClaims struct {
	Email       string `json:"email"`
	Plan        string `json:"plan"`
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens against the shared HS256 secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a TokenVerifier for the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify checks the token signature and expiry and returns the decoded
// claims. Failures are one of ErrTokenMalformed, ErrTokenSignature,
// ErrTokenExpired.
func (v *TokenVerifier) Verify(raw string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignature
		}
		return v.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// SignToken mints a token for the given subject. Issuance normally
// happens in the account service; this is used by operator tooling and
// tests, and must stay in lockstep with Verify.
func SignToken(secret, subject, email, plan, fingerprint string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	now := time.Now().UTC()
	claims := TokenClaims{
		Email:       email,
		Plan:        plan,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
