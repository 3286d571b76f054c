// Package model defines domain entities for the application.
package model

import "time"

// Plan constants. Every resolved identity carries exactly one plan;
// anonymous callers get PlanAnonymous.
const (
	PlanAnonymous = "anonymous"
	PlanFree      = "free"
	PlanPro       = "pro"
)

// ValidPlans contains all plans an authenticated subject may hold.
var ValidPlans = []string{PlanFree, PlanPro}

// FingerprintTagAPIKey is the sentinel fingerprint tag for API-key-derived
// identities. API keys are not context-bound, so the fingerprint guard
// skips identities carrying this tag.
const FingerprintTagAPIKey = "api_key"

// CredentialKind discriminates the Credential variant.
type CredentialKind int

// Credential kinds.
const (
	CredentialNone CredentialKind = iota
	CredentialAPIKey
	CredentialBearerToken
)

// String returns the kind name for logging.
func (k CredentialKind) String() string {
	switch k {
	case CredentialAPIKey:
		return "api_key"
	case CredentialBearerToken:
		return "bearer_token"
	default:
		return "none"
	}
}

// Credential is the typed result of parsing an Authorization header.
// It is constructed per request and never persisted.
type Credential struct {
	Kind CredentialKind
	Raw  string
}

// Identity is the resolved caller identity for one request.
// Constructed fresh from verifier output, never mutated, discarded at
// request end.
type Identity struct {
	SubjectID      string
	Email          string
	Plan           string
	FingerprintTag string
	// Scopes restrict API-key-derived identities. Nil for token-derived
	// identities, which are unscoped.
	Scopes []string
}

// Anonymous returns the identity used for callers without credentials.
func Anonymous() *Identity {
	return &Identity{Plan: PlanAnonymous}
}

// IsAnonymous reports whether the identity has no authenticated subject.
func (i *Identity) IsAnonymous() bool {
	return i == nil || i.Plan == PlanAnonymous || i.SubjectID == ""
}

// HasScope reports whether the identity may perform scope-gated
// operations. Unscoped (token-derived) identities may; scoped ones need
// the scope or admin.
func (i *Identity) HasScope(scope string) bool {
	if i.IsAnonymous() {
		return false
	}
	if len(i.Scopes) == 0 {
		return true
	}
	for _, s := range i.Scopes {
		if s == ScopeAdmin || s == scope {
			return true
		}
	}
	return false
}

// QuotaKey returns the ledger key for this identity. Authenticated
// callers are counted per plan-scoped subject; anonymous callers are
// counted per source IP.
func (i *Identity) QuotaKey(sourceIP string) string {
	if i.IsAnonymous() {
		return "anon:" + sourceIP
	}
	return i.Plan + ":" + i.SubjectID
}

// PlanLimit defines the request budget for one plan.
type PlanLimit struct {
	Requests int
	Period   time.Duration
}

// DefaultPlanLimits is the production quota table. The ledger takes the
// table at construction so tests can inject alternates.
var DefaultPlanLimits = map[string]PlanLimit{
	PlanAnonymous: {Requests: 10, Period: time.Hour},
	PlanFree:      {Requests: 1000, Period: 24 * time.Hour},
	PlanPro:       {Requests: 10000, Period: 24 * time.Hour},
}
