package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

// ErrKeyInvalid is returned for any API key that does not resolve to an
// active stored credential. Store failures map to it as well: this is
// the strongest credential form, so the verifier never fails open.
var ErrKeyInvalid = errors.New("invalid API key")

// KeyStore is the credential store consumed by the verifier.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// IdentityCache caches verified key identities to skip the argon2
// verification on repeat requests.
type IdentityCache interface {
	GetIdentity(ctx context.Context, cacheKey string) (*model.Identity, error)
	SetIdentity(ctx context.Context, cacheKey string, identity *model.Identity) error
}

// APIKeyVerifier resolves opaque API keys to identities.
type APIKeyVerifier struct {
	store  KeyStore
	cache  IdentityCache
	logger *slog.Logger
	now    func() time.Time
}

// NewAPIKeyVerifier creates a verifier. cache may be nil.
func NewAPIKeyVerifier(store KeyStore, cache IdentityCache, logger *slog.Logger) *APIKeyVerifier {
	return &APIKeyVerifier{
		store:  store,
		cache:  cache,
		logger: logger.With("component", "auth.apikey"),
		now:    time.Now,
	}
}

// Verify resolves a raw key to an identity or ErrKeyInvalid. Revoked and
// expired keys are invalid; so is any key the store cannot confirm.
func (v *APIKeyVerifier) Verify(ctx context.Context, raw string) (*model.Identity, error) {
	parsed, err := ParseAPIKey(raw)
	if err != nil {
		return nil, ErrKeyInvalid
	}

	cacheKey := QuickHash(raw)
	if v.cache != nil {
		if identity, err := v.cache.GetIdentity(ctx, cacheKey); err == nil && identity != nil {
			return identity, nil
		}
	}

	candidates, err := v.store.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		// Fail closed: an unreachable credential store must not admit
		// anyone on the API key path.
		v.logger.Error("credential store lookup failed", "error", err)
		return nil, ErrKeyInvalid
	}

	var matched *model.APIKey
	for _, k := range candidates {
		ok, err := VerifyKey(raw, k.KeyHash)
		if err != nil {
			continue
		}
		if ok {
			matched = k
			break
		}
	}

	if matched == nil || matched.IsRevoked() || matched.IsExpired(v.now()) {
		return nil, ErrKeyInvalid
	}

	identity := &model.Identity{
		SubjectID:      matched.UserID,
		Email:          matched.Email,
		Plan:           matched.Plan,
		FingerprintTag: model.FingerprintTagAPIKey,
		Scopes:         matched.Scopes,
	}

	if v.cache != nil {
		if err := v.cache.SetIdentity(ctx, cacheKey, identity); err != nil {
			v.logger.Warn("identity cache write failed", "error", err)
		}
	}

	// Touch last_used_at off the request path.
	go func() {
		_ = v.store.UpdateAPIKeyLastUsed(context.WithoutCancel(ctx), matched.ID)
	}()

	return identity, nil
}
