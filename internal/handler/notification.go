package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/middleware"
	"github.com/edgelink/edgelink/internal/notify"
)

// NotificationHandler exposes user-triggered outbound notifications.
type NotificationHandler struct {
	logger     *slog.Logger
	dispatcher *notify.Dispatcher
	baseURL    string
}

// NewNotificationHandler creates a NotificationHandler. baseURL is the
// public origin used to build links embedded in messages.
func NewNotificationHandler(logger *slog.Logger, dispatcher *notify.Dispatcher, baseURL string) *NotificationHandler {
	return &NotificationHandler{
		logger:     logger,
		dispatcher: dispatcher,
		baseURL:    baseURL,
	}
}

// ResendVerification handles POST /api/v1/auth/resend-verification.
// The recipient is always the authenticated subject's address; callers
// cannot direct mail at arbitrary recipients.
func (h *NotificationHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := auth.IdentityFromContext(ctx)
	if identity.IsAnonymous() {
		writeError(w, http.StatusUnauthorized, auth.CodeAuthRequired, "Authentication required")
		return
	}

	if err := middleware.ValidateEmail(identity.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "NO_EMAIL", "Account has no valid email address")
		return
	}

	link := fmt.Sprintf("%s/verify?subject=%s", h.baseURL, identity.SubjectID)

	if err := h.dispatcher.SendVerification(ctx, identity.Email, link); err != nil {
		if errors.Is(err, notify.ErrAbuseLimited) {
			w.Header().Set("Retry-After", "3600")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many verification emails requested for this address. Try again later.")
			return
		}
		h.logger.Error("verification delivery failed",
			slog.String("subject", identity.SubjectID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "DELIVERY_FAILED", "Could not deliver verification email")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
