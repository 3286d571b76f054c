package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

type fakeIdentityCache struct {
	entries map[string]*model.Identity
	sets    int
}

func (c *fakeIdentityCache) GetIdentity(ctx context.Context, cacheKey string) (*model.Identity, error) {
	return c.entries[cacheKey], nil
}

func (c *fakeIdentityCache) SetIdentity(ctx context.Context, cacheKey string, identity *model.Identity) error {
	if c.entries == nil {
		c.entries = make(map[string]*model.Identity)
	}
	c.entries[cacheKey] = identity
	c.sets++
	return nil
}

func TestAPIKeyVerifier_ExpiredKey(t *testing.T) {
	t.Parallel()

	plaintext, key := storedKey(t)
	expired := time.Now().Add(-time.Minute)
	key.ExpiresAt = &expired
	store := &fakeKeyStore{keys: map[string][]*model.APIKey{key.KeyPrefix: {key}}}

	v := NewAPIKeyVerifier(store, nil, discardLogger())
	if _, err := v.Verify(context.Background(), plaintext); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("Verify error = %v, want ErrKeyInvalid", err)
	}
}

func TestAPIKeyVerifier_ScopesCarried(t *testing.T) {
	t.Parallel()

	plaintext, key := storedKey(t)
	store := &fakeKeyStore{keys: map[string][]*model.APIKey{key.KeyPrefix: {key}}}

	v := NewAPIKeyVerifier(store, nil, discardLogger())
	identity, err := v.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(identity.Scopes) != 2 {
		t.Fatalf("Scopes = %v, want 2 entries", identity.Scopes)
	}
	if !identity.HasScope(model.ScopeWrite) {
		t.Error("identity should carry write scope")
	}
	if identity.HasScope(model.ScopeAdmin) {
		t.Error("identity should not have admin scope")
	}
}

func TestAPIKeyVerifier_CachesVerifiedIdentity(t *testing.T) {
	t.Parallel()

	plaintext, key := storedKey(t)
	store := &fakeKeyStore{keys: map[string][]*model.APIKey{key.KeyPrefix: {key}}}
	cache := &fakeIdentityCache{}

	v := NewAPIKeyVerifier(store, cache, discardLogger())

	if _, err := v.Verify(context.Background(), plaintext); err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Second verification is served from cache even if the store is down.
	store.err = errors.New("store down")
	identity, err := v.Verify(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("cached Verify failed: %v", err)
	}
	if identity.SubjectID != key.UserID {
		t.Errorf("SubjectID = %s, want %s", identity.SubjectID, key.UserID)
	}
}
