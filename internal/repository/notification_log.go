package repository

import (
	"context"
	"fmt"

	"github.com/edgelink/edgelink/internal/model"
)

// Append writes one delivery attempt to the notification audit log.
// Records are append-only and never updated.
func (r *Repository) Append(ctx context.Context, attempt *model.DeliveryAttempt) error {
	query := `
		INSERT INTO notification_log (id, notification_type, recipient, status, provider_message_id, error_message, attempt_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		string(attempt.Kind),
		attempt.Recipient,
		attempt.Status,
		nullable(attempt.ProviderMessageID),
		nullable(attempt.ErrorMessage),
		attempt.AttemptNumber,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append delivery attempt: %w", err)
	}

	return nil
}

// ListDeliveryAttempts returns recent audit records for a recipient,
// newest first. Used by operator tooling.
func (r *Repository) ListDeliveryAttempts(ctx context.Context, recipient string, limit int) ([]*model.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, notification_type, recipient, status, COALESCE(provider_message_id, ''), COALESCE(error_message, ''), attempt_number, created_at
		FROM notification_log
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.DeliveryAttempt
	for rows.Next() {
		var a model.DeliveryAttempt
		var kind string
		if err := rows.Scan(&a.ID, &kind, &a.Recipient, &a.Status, &a.ProviderMessageID, &a.ErrorMessage, &a.AttemptNumber, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		a.Kind = model.NotificationKind(kind)
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery attempts: %w", err)
	}

	return attempts, nil
}

// nullable maps empty strings to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
