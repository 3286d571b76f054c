package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/edgelink/edgelink/internal/model"
)

// Machine-readable rejection codes surfaced in 401 bodies.
const (
	CodeInvalidAPIKey      = "INVALID_API_KEY"
	CodeInvalidFingerprint = "INVALID_FINGERPRINT"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeAuthFailed         = "AUTH_FAILED"
)

// ResolveError is a hard identity rejection. Soft failures (missing
// header, unparseable or expired JWT) never produce one; they degrade
// to the anonymous identity instead.
type ResolveError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ResolveError) Error() string { return e.Code + ": " + e.Message }

var (
	errInvalidAPIKey = &ResolveError{
		Code:    CodeInvalidAPIKey,
		Message: "Invalid or revoked API key",
	}
	errInvalidFingerprint = &ResolveError{
		Code:    CodeInvalidFingerprint,
		Message: "Token was issued for a different client context",
	}
	errAuthFailed = &ResolveError{
		Code:    CodeAuthFailed,
		Message: "Authentication failed",
	}
)

// Resolver orchestrates credential extraction, key/token verification
// and the fingerprint guard into one identity decision per request.
type Resolver struct {
	keys        *APIKeyVerifier
	tokens      *TokenVerifier
	fingerprint FingerprintFunc
	logger      *slog.Logger
}

// NewResolver creates a Resolver. fingerprint may be nil, in which case
// the reference derivation is used.
func NewResolver(keys *APIKeyVerifier, tokens *TokenVerifier, fingerprint FingerprintFunc, logger *slog.Logger) *Resolver {
	if fingerprint == nil {
		fingerprint = RequestFingerprint
	}
	return &Resolver{
		keys:        keys,
		tokens:      tokens,
		fingerprint: fingerprint,
		logger:      logger.With("component", "auth.resolver"),
	}
}

// Resolve decides the identity for one request: anonymous,
// authenticated, or rejected with a ResolveError.
//
// Precedence: a credential that classifies as an API key never falls
// through to the JWT path, and an invalid API key is a hard rejection
// rather than anonymous. A missing credential or an unparseable/expired
// JWT degrades to anonymous. A JWT that verifies but fails the
// fingerprint binding is a hard rejection. Anything unexpected fails
// closed with a generic rejection; identity never fails open.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (identity *model.Identity, rerr *ResolveError) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during identity resolution", "panic", rec)
			identity, rerr = nil, errAuthFailed
		}
	}()

	cred := ExtractCredential(req.Header.Get("Authorization"))

	switch cred.Kind {
	case model.CredentialNone:
		return model.Anonymous(), nil

	case model.CredentialAPIKey:
		id, err := r.keys.Verify(ctx, cred.Raw)
		if err != nil {
			r.logger.Warn("authentication failed",
				"reason", "invalid_key",
				"credential", cred.Kind.String(),
			)
			return nil, errInvalidAPIKey
		}
		return id, nil

	case model.CredentialBearerToken:
		claims, err := r.tokens.Verify(cred.Raw)
		if err != nil {
			// Signature/expiry checks run before the fingerprint guard,
			// and their failures are soft: the caller proceeds as
			// anonymous rather than being rejected.
			r.logger.Debug("bearer token rejected, degrading to anonymous", "reason", err.Error())
			return model.Anonymous(), nil
		}

		if !FingerprintMatches(claims.Fingerprint, r.fingerprint(req)) {
			r.logger.Warn("authentication failed",
				"reason", "fingerprint_mismatch",
				"subject", claims.Subject,
			)
			return nil, errInvalidFingerprint
		}

		plan := claims.Plan
		if !slices.Contains(model.ValidPlans, plan) {
			plan = model.PlanFree
		}

		return &model.Identity{
			SubjectID:      claims.Subject,
			Email:          claims.Email,
			Plan:           plan,
			FingerprintTag: claims.Fingerprint,
		}, nil
	}

	// New credential kinds must be handled explicitly, never silently
	// admitted as anonymous.
	r.logger.Error("unhandled credential kind", "kind", int(cred.Kind))
	return nil, errAuthFailed
}
