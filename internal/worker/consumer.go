package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/booking-be/internal/notification"
	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

// setupConsumer sets QoS and starts a manual-ack consumer
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	// prefetch bounds the unacknowledged messages held by this consumer
	if err := w.broker.SetQoS(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.broker.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return deliveries, nil
}

// startMessageDispatcher parses deliveries and dispatches them to the pool.
// Messages that cannot be parsed or validated are rejected without requeue
// and end up in the dead letter queue.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			var msg notification.Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.reject(delivery.DeliveryTag, fmt.Errorf("%w: %v", notification.ErrInvalidMessage, err))
				continue
			}

			if err := msg.Validate(); err != nil {
				w.reject(delivery.DeliveryTag, err)
				continue
			}

			task := &domain.Task{Message: &msg, DeliveryTag: delivery.DeliveryTag}

			select {
			case w.jobsChan <- task:
				w.logger.Debug("Notification dispatched to worker pool",
					slog.String("message_id", msg.ID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				if err := w.broker.Nack(delivery.DeliveryTag, true); err != nil {
					w.logger.Error("Failed to NACK message on shutdown", slog.Any("error", err))
				}
				return nil
			}
		}
	}
}

func (w *Worker) reject(tag uint64, reason error) {
	w.logger.Error("Rejecting malformed notification",
		slog.Uint64("delivery_tag", tag),
		slog.Any("error", reason),
	)
	if err := w.broker.Nack(tag, false); err != nil {
		w.logger.Error("Failed to NACK malformed message", slog.Any("error", err))
	}
}
