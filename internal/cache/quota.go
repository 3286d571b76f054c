package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

// quotaKeyPrefix is the Redis key prefix for quota windows.
const quotaKeyPrefix = "quota:"

// Counters is the narrow counter-store contract the quota ledger and
// abuse limiter share. *Cache satisfies it; tests substitute fakes.
// A negative TTL on Put preserves the key's existing expiry (Redis
// KEEPTTL semantics).
type Counters interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// QuotaResult is the outcome of one ledger check.
type QuotaResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// QuotaLedger enforces plan-tiered request budgets over fixed time
// windows. The window boundary is floor(now/period)*period and the
// window start is baked into the counter key, so rollover needs no
// explicit reset: the previous window's key simply expires.
//
// Increments are read-then-write with no cross-request locking. Under
// high concurrency the effective limit can be exceeded by a small
// margin; that approximation is accepted in exchange for a plain
// counter primitive.
type QuotaLedger struct {
	counters Counters
	limits   map[string]model.PlanLimit
	logger   *slog.Logger
	now      func() time.Time
}

// NewQuotaLedger creates a ledger over the given counter store. The
// plan table is taken at construction so tests can inject alternates.
func NewQuotaLedger(counters Counters, limits map[string]model.PlanLimit, logger *slog.Logger) *QuotaLedger {
	if limits == nil {
		limits = model.DefaultPlanLimits
	}
	return &QuotaLedger{
		counters: counters,
		limits:   limits,
		logger:   logger.With("component", "cache.quota"),
		now:      time.Now,
	}
}

// CheckAndIncrement counts one request against key's current window.
// The counter is incremented only on the allowed path, so a denied
// request is never charged.
//
// Storage failures fail open: availability is prioritized over strict
// quota accuracy, unlike the identity path which fails closed.
func (l *QuotaLedger) CheckAndIncrement(ctx context.Context, key, plan string) *QuotaResult {
	limit, ok := l.limits[plan]
	if !ok {
		// Unknown plans get the most restrictive budget.
		limit = l.limits[model.PlanAnonymous]
	}

	periodSec := int64(limit.Period / time.Second)
	now := l.now().Unix()
	windowStart := now - now%periodSec
	resetAfter := time.Duration(windowStart+periodSec-now) * time.Second
	counterKey := fmt.Sprintf("%s%s:%d", quotaKeyPrefix, key, windowStart)

	count := 0
	raw, found, err := l.counters.Get(ctx, counterKey)
	if err != nil {
		l.logger.Error("quota read failed, allowing request",
			"key", key,
			"error", err,
		)
		return &QuotaResult{Allowed: true, Limit: limit.Requests, Remaining: limit.Requests, ResetAfter: resetAfter}
	}
	if found {
		count, err = strconv.Atoi(raw)
		if err != nil {
			// Corrupted counter: start the window over rather than
			// denying on garbage.
			l.logger.Warn("quota counter corrupted, resetting", "key", counterKey)
			count = 0
		}
	}

	if count >= limit.Requests {
		return &QuotaResult{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			ResetAfter: resetAfter,
		}
	}

	count++
	if err := l.counters.Put(ctx, counterKey, strconv.Itoa(count), resetAfter); err != nil {
		l.logger.Error("quota write failed, allowing request",
			"key", key,
			"error", err,
		)
	}

	return &QuotaResult{
		Allowed:    true,
		Limit:      limit.Requests,
		Remaining:  limit.Requests - count,
		ResetAfter: resetAfter,
	}
}
