package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/edgelink/edgelink/internal/model"
)

// abuseKeyPrefix is the Redis key prefix for notification abuse counters.
const abuseKeyPrefix = "abuse:"

// AbuseLimiter bounds outbound notification volume per recipient,
// independent of caller identity, so the platform cannot be used as an
// email bomb. Same counter mechanics as the quota ledger, keyed by
// notification kind and recipient with a fixed hourly window.
type AbuseLimiter struct {
	counters Counters
	limits   map[model.NotificationKind]int
	logger   *slog.Logger
	now      func() time.Time
}

// NewAbuseLimiter creates a limiter over the given counter store.
func NewAbuseLimiter(counters Counters, limits map[model.NotificationKind]int, logger *slog.Logger) *AbuseLimiter {
	if limits == nil {
		limits = model.DefaultAbuseLimits
	}
	return &AbuseLimiter{
		counters: counters,
		limits:   limits,
		logger:   logger.With("component", "cache.abuse"),
		now:      time.Now,
	}
}

// Allow reports whether one more notification of the given kind may be
// sent to recipient within the current hour, incrementing the counter
// when it may. Consistent with the quota ledger, storage failures fail
// open: this control guards a secondary feature's availability.
func (a *AbuseLimiter) Allow(ctx context.Context, kind model.NotificationKind, recipient string) bool {
	limit, ok := a.limits[kind]
	if !ok || limit <= 0 {
		// Kinds without an entry are uncapped.
		return true
	}

	key := abuseKeyPrefix + string(kind) + ":" + recipient

	count := 0
	raw, found, err := a.counters.Get(ctx, key)
	if err != nil {
		a.logger.Error("abuse counter read failed, allowing send",
			"kind", string(kind),
			"error", err,
		)
		return true
	}
	if found {
		count, err = strconv.Atoi(raw)
		if err != nil {
			a.logger.Warn("abuse counter corrupted, resetting", "key", key)
			count = 0
		}
	}

	if count >= limit {
		return false
	}

	// The TTL is set on first increment only; later increments keep the
	// original window open rather than sliding it.
	ttl := model.AbuseWindow
	if found {
		ttl = redisKeepTTL
	}
	if err := a.counters.Put(ctx, key, strconv.Itoa(count+1), ttl); err != nil {
		a.logger.Error("abuse counter write failed, allowing send",
			"kind", string(kind),
			"error", err,
		)
	}
	return true
}

// redisKeepTTL mirrors redis.KeepTTL: a negative TTL preserves the
// key's existing expiry on SET.
const redisKeepTTL = time.Duration(-1)
