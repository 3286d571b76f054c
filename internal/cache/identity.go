package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

const (
	// identityCachePrefix is the Redis key prefix for verified identities.
	identityCachePrefix = "auth:identity:"
	// identityCacheTTL is the time-to-live for cached identities.
	identityCacheTTL = 5 * time.Minute
)

// cachedIdentity is the wire form of a cached identity.
type cachedIdentity struct {
	SubjectID      string   `json:"subject_id"`
	Email          string   `json:"email"`
	Plan           string   `json:"plan"`
	FingerprintTag string   `json:"fingerprint_tag"`
	Scopes         []string `json:"scopes,omitempty"`
}

// GetIdentity retrieves a cached verified identity by cache key.
// Returns nil on a cache miss.
func (c *Cache) GetIdentity(ctx context.Context, cacheKey string) (*model.Identity, error) {
	key := identityCachePrefix + cacheKey

	data, found, err := c.Get(ctx, key)
	if err != nil || !found {
		// Misses and transport errors are both treated as misses; the
		// verifier falls back to the credential store.
		return nil, nil //nolint:nilerr
	}

	var cached cachedIdentity
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Identity{
		SubjectID:      cached.SubjectID,
		Email:          cached.Email,
		Plan:           cached.Plan,
		FingerprintTag: cached.FingerprintTag,
		Scopes:         cached.Scopes,
	}, nil
}

// SetIdentity caches a verified identity.
func (c *Cache) SetIdentity(ctx context.Context, cacheKey string, identity *model.Identity) error {
	key := identityCachePrefix + cacheKey

	data, err := json.Marshal(cachedIdentity{
		SubjectID:      identity.SubjectID,
		Email:          identity.Email,
		Plan:           identity.Plan,
		FingerprintTag: identity.FingerprintTag,
		Scopes:         identity.Scopes,
	})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.Put(ctx, key, string(data), identityCacheTTL)
}

// DeleteIdentity removes a cached identity. Used when a key is revoked.
func (c *Cache) DeleteIdentity(ctx context.Context, cacheKey string) error {
	return c.Delete(ctx, identityCachePrefix+cacheKey)
}
