package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop delivers tasks until the worker is stopped
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case task := <-w.jobsChan:
			err := w.processMessage(ctx, workerName, task.Message)
			w.settle(workerName, task, err)
		}
	}
}

// settle ACKs delivered messages and NACKs failures, requeueing only the
// retryable ones
func (w *Worker) settle(workerName string, task *domain.Task, err error) {
	messageID := task.Message.ID

	if err == nil {
		if ackErr := w.broker.Ack(task.DeliveryTag); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("message_id", messageID),
				slog.Any("error", ackErr),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Notification delivery failed",
		slog.String("worker_name", workerName),
		slog.String("message_id", messageID),
		slog.Bool("requeue", requeue),
		slog.Any("error", err),
	)

	if nackErr := w.broker.Nack(task.DeliveryTag, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("message_id", messageID),
			slog.Any("error", nackErr),
		)
	}
}

func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
