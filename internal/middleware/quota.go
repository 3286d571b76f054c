package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/cache"
	"github.com/edgelink/edgelink/internal/metrics"
	"github.com/edgelink/edgelink/internal/model"
)

// RateLimitExceededCode is the 429 body code.
const RateLimitExceededCode = "RATE_LIMIT_EXCEEDED"

// QuotaConfig holds configuration for the quota middleware.
type QuotaConfig struct {
	Logger  *slog.Logger
	Ledger  *cache.QuotaLedger
	Metrics metrics.Recorder
	Enabled bool
}

// Quota returns middleware enforcing plan-tiered request budgets.
// Must be applied after Identity so authenticated callers are counted
// per subject; anonymous callers are counted per source IP. The counter
// is charged only when the request is allowed through.
func Quota(cfg QuotaConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				// Identity middleware has not run; count as anonymous
				// rather than skipping enforcement.
				identity = model.Anonymous()
			}

			result := cfg.Ledger.CheckAndIncrement(
				r.Context(),
				identity.QuotaKey(getClientIP(r)),
				identity.Plan,
			)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				recorder.IncQuotaDecision(identity.Plan, "denied")
				cfg.Logger.Warn("quota exceeded",
					slog.String("plan", identity.Plan),
					slog.String("subject", identity.SubjectID),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.ResetAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				retryAfter := int(result.ResetAfter.Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, RateLimitExceededCode,
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
				return
			}

			recorder.IncQuotaDecision(identity.Plan, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers for proxied requests.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP (client IP)
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
