package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgelink/edgelink/internal/metrics"
	"github.com/edgelink/edgelink/internal/model"
	"github.com/oklog/ulid/v2"
)

// DefaultMaxRetries is the fixed attempt budget per logical send.
const DefaultMaxRetries = 3

// AuditStore records delivery attempts. Appends are fire-and-forget:
// failures are logged and swallowed, never surfaced to the caller.
type AuditStore interface {
	Append(ctx context.Context, attempt *model.DeliveryAttempt) error
}

// Engine wraps a provider send in a fixed-budget exponential backoff.
//
// Per attempt outcome: success returns immediately; a provider 429
// waits Retry-After (or 2^attempt seconds) and retries; a 5xx waits
// 2^attempt seconds and retries; any other error is terminal with no
// retry. The 429/5xx/4xx distinction is load-bearing - client errors
// must never be retried.
//
// The engine sleeps in-line between attempts (up to 8s after the final
// one), so a failing send can hold the caller for ~15 seconds. Callers
// should budget for that rather than treat dispatch as instant.
type Engine struct {
	provider   Provider
	audit      AuditStore
	logger     *slog.Logger
	metrics    metrics.Recorder
	maxRetries int
	sleep      func(time.Duration)
}

// NewEngine creates a retry engine. recorder may be nil.
func NewEngine(provider Provider, audit AuditStore, logger *slog.Logger, recorder metrics.Recorder) *Engine {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Engine{
		provider:   provider,
		audit:      audit,
		logger:     logger.With("component", "notify.engine"),
		metrics:    recorder,
		maxRetries: DefaultMaxRetries,
		sleep:      time.Sleep,
	}
}

// SetMaxRetries overrides the attempt budget.
func (e *Engine) SetMaxRetries(n int) {
	if n > 0 {
		e.maxRetries = n
	}
}

// backoffDelay is 2^attempt seconds.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Send delivers one message with retries. Returns the provider message
// ID, or a terminal error naming the notification kind and the
// underlying cause once the budget is exhausted or a client error
// occurs.
func (e *Engine) Send(ctx context.Context, kind model.NotificationKind, msg Message) (string, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		attempts = attempt

		start := time.Now()
		id, err := e.provider.Send(ctx, msg)
		e.metrics.ObserveDeliveryDuration(string(kind), time.Since(start))

		if err == nil {
			e.appendAudit(ctx, &model.DeliveryAttempt{
				Kind:              kind,
				Recipient:         msg.To,
				Status:            model.DeliverySent,
				ProviderMessageID: id,
				AttemptNumber:     attempt,
			})
			e.logger.Info("notification delivered",
				"kind", string(kind),
				"attempt", attempt,
				"provider_message_id", id,
			)
			e.metrics.IncDelivery(string(kind), model.DeliverySent)
			return id, nil
		}

		lastErr = err

		var perr *ProviderError
		if errors.As(err, &perr) && perr.IsRetryable() {
			delay := backoffDelay(attempt)

			if perr.StatusCode == http.StatusTooManyRequests {
				if perr.RetryAfter > 0 {
					delay = perr.RetryAfter
				}
				e.appendAudit(ctx, &model.DeliveryAttempt{
					Kind:          kind,
					Recipient:     msg.To,
					Status:        model.DeliveryRateLimited,
					ErrorMessage:  err.Error(),
					AttemptNumber: attempt,
				})
				e.logger.Warn("provider rate limited",
					"kind", string(kind),
					"attempt", attempt,
					"delay_seconds", int(delay.Seconds()),
				)
			}

			e.metrics.IncDeliveryRetry(string(kind), attempt)
			e.sleep(delay)
			continue
		}

		// Client errors and transport failures: terminal, no retry.
		break
	}

	e.appendAudit(ctx, &model.DeliveryAttempt{
		Kind:          kind,
		Recipient:     msg.To,
		Status:        model.DeliveryFailed,
		ErrorMessage:  lastErr.Error(),
		AttemptNumber: attempts,
	})
	e.logger.Error("notification delivery failed",
		"kind", string(kind),
		"retry_count", attempts,
		"error", lastErr,
	)
	e.metrics.IncDelivery(string(kind), model.DeliveryFailed)

	return "", fmt.Errorf("send %s notification: %w", kind, lastErr)
}

// appendAudit writes one delivery attempt record, swallowing failures
// so audit logging can never block or fail a send.
func (e *Engine) appendAudit(ctx context.Context, attempt *model.DeliveryAttempt) {
	if e.audit == nil {
		return
	}
	attempt.ID = ulid.Make().String()
	attempt.CreatedAt = time.Now()

	if err := e.audit.Append(context.WithoutCancel(ctx), attempt); err != nil {
		e.logger.Warn("audit append failed",
			"kind", string(attempt.Kind),
			"status", attempt.Status,
			"error", err,
		)
	}
}
