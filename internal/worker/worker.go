package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/booking-be/internal/notification"
	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

// ErrDeliveriesClosed is returned by Start when the broker stops delivering
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Broker is the consuming side of the notification queue
type Broker interface {
	SetQoS(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	Ack(tag uint64) error
	Nack(tag uint64, requeue bool) error
}

// DeliveryLog records which messages were delivered
type DeliveryLog interface {
	ClaimDelivery(ctx context.Context, messageID, kind, workerID string, staleAfter time.Duration) (*domain.Delivery, error)
	MarkDelivered(ctx context.Context, messageID string) error
	MarkFailed(ctx context.Context, messageID, errorMsg string) error
}

// Config holds worker configuration
type Config struct {
	Logger          *slog.Logger
	Broker          Broker
	Log             DeliveryLog
	Transport       notification.Transport
	Concurrency     int
	PrefetchCount   int
	MaxRetries      int
	DeliveryTimeout time.Duration
}

// Worker consumes notification messages and hands them to the transport
type Worker struct {
	logger          *slog.Logger
	broker          Broker
	log             DeliveryLog
	transport       notification.Transport
	workerID        string
	concurrency     int
	prefetchCount   int
	maxRetries      int
	deliveryTimeout time.Duration
	jobsChan        chan *domain.Task
	wg              sync.WaitGroup
	stopChan        chan struct{}
	stopOnce        sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Worker{
		logger:          cfg.Logger,
		broker:          cfg.Broker,
		log:             cfg.Log,
		transport:       cfg.Transport,
		workerID:        "notification-worker-" + uuid.NewString()[:8],
		concurrency:     concurrency,
		prefetchCount:   prefetch,
		maxRetries:      cfg.MaxRetries,
		deliveryTimeout: timeout,
		jobsChan:        make(chan *domain.Task, concurrency),
		stopChan:        make(chan struct{}),
	}
}

// Start consumes until ctx is canceled or the broker closes the delivery
// channel
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("delivery_timeout", w.deliveryTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop signals the pool and waits for in-flight messages
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
