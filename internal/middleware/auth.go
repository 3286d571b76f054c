package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/metrics"
)

// IdentityConfig holds configuration for the identity middleware.
type IdentityConfig struct {
	Logger   *slog.Logger
	Resolver *auth.Resolver
	Metrics  metrics.Recorder
}

// Identity returns middleware that resolves the caller identity for
// every request. Anonymous is a valid outcome and passes through; hard
// rejections (invalid API key, fingerprint mismatch, internal failure)
// terminate the request with a coded 401. Identity never fails open.
func Identity(cfg IdentityConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			identity, rerr := cfg.Resolver.Resolve(r.Context(), r)
			recorder.ObserveResolveDuration(time.Since(start))

			if rerr != nil {
				recorder.IncAuthDecision("rejected")
				cfg.Logger.Warn("request rejected",
					slog.String("code", rerr.Code),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, rerr.Code, rerr.Message)
				return
			}

			if identity.IsAnonymous() {
				recorder.IncAuthDecision("anonymous")
			} else {
				recorder.IncAuthDecision("authenticated")
				cfg.Logger.Info("authentication successful",
					slog.String("subject", identity.SubjectID),
					slog.String("plan", identity.Plan),
					slog.String("fingerprint_tag", tagForLog(identity.FingerprintTag)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tagForLog avoids logging full fingerprint values.
func tagForLog(tag string) string {
	if tag == "api_key" || len(tag) <= 8 {
		return tag
	}
	return tag[:8]
}

// RequireAuth returns middleware that rejects anonymous callers.
// Must be applied after Identity.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity.IsAnonymous() {
				writeError(w, http.StatusUnauthorized, auth.CodeAuthRequired, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes a machine-readable JSON error body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
}
