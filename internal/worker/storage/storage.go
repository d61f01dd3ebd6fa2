package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS notification_deliveries (
	message_id  TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	worker_id   TEXT NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 1,
	last_error  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Storage records notification deliveries so a redelivered message is never
// sent twice
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the deliveries table
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate deliveries: %w", err)
	}
	return nil
}

// ClaimDelivery marks a message as processing by workerID. A message can be
// claimed again only after a failed attempt or when the previous claim is
// older than staleAfter.
func (s *Storage) ClaimDelivery(ctx context.Context, messageID, kind, workerID string, staleAfter time.Duration) (*domain.Delivery, error) {
	query := `
		INSERT INTO notification_deliveries (message_id, kind, status, worker_id, attempts)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (message_id) DO UPDATE
		SET status = EXCLUDED.status,
		    worker_id = EXCLUDED.worker_id,
		    attempts = notification_deliveries.attempts + 1,
		    updated_at = NOW()
		WHERE notification_deliveries.status = $5
		   OR (notification_deliveries.status = $3
		       AND notification_deliveries.updated_at < NOW() - make_interval(secs => $6))
		RETURNING message_id, kind, status, worker_id, attempts, last_error
	`

	var d domain.Delivery
	err := s.db.GetContext(ctx, &d, query,
		messageID,
		kind,
		domain.DeliveryStatusProcessing,
		workerID,
		domain.DeliveryStatusFailed,
		staleAfter.Seconds(),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Delivery already claimed",
				slog.String("message_id", messageID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrDeliveryAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim delivery: %w", err)
	}

	return &d, nil
}

// MarkDelivered records a successful delivery
func (s *Storage) MarkDelivered(ctx context.Context, messageID string) error {
	return s.setStatus(ctx, messageID, domain.DeliveryStatusDelivered, "")
}

// MarkFailed records a failed attempt so the message can be claimed again
func (s *Storage) MarkFailed(ctx context.Context, messageID, errorMsg string) error {
	return s.setStatus(ctx, messageID, domain.DeliveryStatusFailed, errorMsg)
}

func (s *Storage) setStatus(ctx context.Context, messageID, status, errorMsg string) error {
	query := `
		UPDATE notification_deliveries
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE message_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, messageID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delivery %s not found", messageID)
	}

	return nil
}
