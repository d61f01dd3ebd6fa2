package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-be/internal/notification"
	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

// processMessage claims the message in the delivery log and hands it to the
// transport. Duplicates of a delivered message are skipped and acknowledged.
func (w *Worker) processMessage(ctx context.Context, workerName string, msg *notification.Message) error {
	delivery, err := w.log.ClaimDelivery(ctx, msg.ID, string(msg.Kind), w.workerID, 2*w.deliveryTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrDeliveryAlreadyClaimed) {
			w.logger.Info("Duplicate notification skipped",
				slog.String("worker_name", workerName),
				slog.String("message_id", msg.ID),
			)
			return nil
		}
		return domain.NewRetryableError(fmt.Errorf("failed to claim delivery: %w", err))
	}

	deliverCtx, cancel := context.WithTimeout(ctx, w.deliveryTimeout)
	defer cancel()

	if err := w.transport.Deliver(deliverCtx, msg); err != nil {
		if markErr := w.log.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
			w.logger.Error("Failed to record failed delivery",
				slog.String("message_id", msg.ID),
				slog.Any("error", markErr),
			)
		}

		if delivery.Attempts > w.maxRetries {
			return fmt.Errorf("%w: attempt %d: %v", domain.ErrMaxRetriesExceeded, delivery.Attempts, err)
		}
		return domain.NewRetryableError(fmt.Errorf("delivery attempt %d failed: %w", delivery.Attempts, err))
	}

	if err := w.log.MarkDelivered(ctx, msg.ID); err != nil {
		// the message went out, ACK anyway
		w.logger.Error("Failed to record delivery",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}

	w.logger.Info("Notification delivered",
		slog.String("worker_name", workerName),
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", delivery.Attempts),
	)
	return nil
}
