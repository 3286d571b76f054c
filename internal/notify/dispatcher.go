package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgelink/edgelink/internal/cache"
	"github.com/edgelink/edgelink/internal/model"
)

// ErrAbuseLimited means the per-recipient cap for this notification
// kind is exhausted. Not a delivery failure: nothing was attempted.
var ErrAbuseLimited = errors.New("notification rate limit reached for recipient")

// Dispatcher sends one logical notification per call: abuse-limit gate,
// template render, then delivery through the retry engine.
type Dispatcher struct {
	engine   *Engine
	renderer Renderer
	limiter  *cache.AbuseLimiter
	from     string
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. limiter may be nil to disable the
// per-recipient cap (tests only).
func NewDispatcher(engine *Engine, renderer Renderer, limiter *cache.AbuseLimiter, from string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		renderer: renderer,
		limiter:  limiter,
		from:     from,
		logger:   logger.With("component", "notify.dispatcher"),
	}
}

// SendVerification emails an address-confirmation link.
func (d *Dispatcher) SendVerification(ctx context.Context, recipient, link string) error {
	return d.dispatch(ctx, model.NotifyVerification, recipient, map[string]string{"link": link})
}

// SendPasswordReset emails a password-reset link.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, recipient, link string) error {
	return d.dispatch(ctx, model.NotifyPasswordReset, recipient, map[string]string{"link": link})
}

// SendPasswordChanged notifies that the account password was changed.
func (d *Dispatcher) SendPasswordChanged(ctx context.Context, recipient string) error {
	return d.dispatch(ctx, model.NotifyPasswordChanged, recipient, nil)
}

// SendUnverifiedWarning nags an unverified account.
func (d *Dispatcher) SendUnverifiedWarning(ctx context.Context, recipient, link string) error {
	return d.dispatch(ctx, model.NotifyUnverifiedWarn, recipient, map[string]string{"link": link})
}

// SendAccountDeletion emails a deletion-confirmation link.
func (d *Dispatcher) SendAccountDeletion(ctx context.Context, recipient, link string) error {
	return d.dispatch(ctx, model.NotifyAccountDeletion, recipient, map[string]string{"link": link})
}

// dispatch is the shared path for all notification kinds.
func (d *Dispatcher) dispatch(ctx context.Context, kind model.NotificationKind, recipient string, params map[string]string) error {
	if d.limiter != nil && !d.limiter.Allow(ctx, kind, recipient) {
		d.logger.Warn("notification blocked by abuse limit",
			"kind", string(kind),
		)
		return ErrAbuseLimited
	}

	subject, body, err := d.renderer.Render(kind, params)
	if err != nil {
		return fmt.Errorf("render %s notification: %w", kind, err)
	}

	msg := Message{
		To:      recipient,
		From:    d.from,
		Subject: subject,
		Body:    body,
	}

	if _, err := d.engine.Send(ctx, kind, msg); err != nil {
		return err
	}
	return nil
}
