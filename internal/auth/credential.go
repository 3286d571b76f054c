// Package auth implements credential handling and identity resolution.
package auth

import (
	"strings"

	"github.com/edgelink/edgelink/internal/model"
)

// bearerScheme is the Authorization scheme prefix, matched case-insensitively.
const bearerScheme = "Bearer "

// ExtractCredential parses an Authorization header value into a typed
// credential. It never fails: malformed values classify as no credential,
// since anonymous access is always a valid outcome. Pure, no I/O.
func ExtractCredential(header string) model.Credential {
	header = strings.TrimSpace(header)
	if header == "" {
		return model.Credential{Kind: model.CredentialNone}
	}

	// Strip the Bearer scheme if present. Clients send both API keys and
	// JWTs under it, so the scheme alone says nothing about the kind.
	raw := header
	if len(raw) >= len(bearerScheme) && strings.EqualFold(raw[:len(bearerScheme)], bearerScheme) {
		raw = strings.TrimSpace(raw[len(bearerScheme):])
	}

	if raw == "" {
		return model.Credential{Kind: model.CredentialNone}
	}

	if strings.HasPrefix(raw, KeyPrefix) {
		return model.Credential{Kind: model.CredentialAPIKey, Raw: raw}
	}

	return model.Credential{Kind: model.CredentialBearerToken, Raw: raw}
}
