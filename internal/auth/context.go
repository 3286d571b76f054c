package auth

import (
	"context"

	"github.com/edgelink/edgelink/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// identityContextKey is the context key for storing the resolved Identity.
const identityContextKey contextKey = "identity"

// ContextWithIdentity adds the resolved identity to the context.
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the resolved identity from the context.
// Returns nil if the identity middleware has not run.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok {
		return nil
	}
	return identity
}

// SubjectFromContext is a convenience accessor for the subject ID.
// Returns empty string for anonymous or unresolved requests.
func SubjectFromContext(ctx context.Context) string {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return ""
	}
	return identity.SubjectID
}
