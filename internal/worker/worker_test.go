package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-be/internal/notification"
	"github.com/cuongbtq/booking-be/internal/worker/domain"
	"github.com/cuongbtq/booking-be/internal/worker/storage"
)

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeBroker struct {
	mu          sync.Mutex
	deliveries  chan amqp.Delivery
	prefetch    int
	settlements []settlement
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{deliveries: make(chan amqp.Delivery, 16)}
}

func (b *fakeBroker) SetQoS(prefetchCount int) error {
	b.prefetch = prefetchCount
	return nil
}

func (b *fakeBroker) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Ack(tag uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settlements = append(b.settlements, settlement{tag: tag, ack: true})
	return nil
}

func (b *fakeBroker) Nack(tag uint64, requeue bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settlements = append(b.settlements, settlement{tag: tag, requeue: requeue})
	return nil
}

func (b *fakeBroker) settled(tag uint64) (settlement, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.settlements {
		if s.tag == tag {
			return s, true
		}
	}
	return settlement{}, false
}

type fakeTransport struct {
	mu        sync.Mutex
	failures  int
	delivered []string
	calls     int
}

func (t *fakeTransport) Deliver(ctx context.Context, msg *notification.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.failures > 0 {
		t.failures--
		return errors.New("provider unavailable")
	}
	t.delivered = append(t.delivered, msg.ID)
	return nil
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func startWorker(t *testing.T, broker *fakeBroker, transport *fakeTransport, maxRetries int) *storage.Memory {
	t.Helper()

	log := storage.NewMemory()
	w := NewWorker(&Config{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Broker:          broker,
		Log:             log,
		Transport:       transport,
		Concurrency:     2,
		PrefetchCount:   4,
		MaxRetries:      maxRetries,
		DeliveryTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		w.Stop()
	})
	return log
}

func emailBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(notification.Message{
		ID:   id,
		Kind: notification.KindEmail,
		Email: &notification.Email{
			To:       "kund@example.com",
			Subject:  "Bekräftelse",
			Template: "emails.job-accepted",
		},
	})
	require.NoError(t, err)
	return body
}

func waitSettled(t *testing.T, broker *fakeBroker, tag uint64) settlement {
	t.Helper()
	var s settlement
	require.Eventually(t, func() bool {
		var ok bool
		s, ok = broker.settled(tag)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return s
}

func TestWorker_DeliversAndAcks(t *testing.T) {
	broker := newFakeBroker()
	transport := &fakeTransport{}
	log := startWorker(t, broker, transport, 3)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: emailBody(t, "msg-1")}

	s := waitSettled(t, broker, 1)
	assert.True(t, s.ack)
	assert.Equal(t, 4, broker.prefetch)

	d, ok := log.Delivery("msg-1")
	require.True(t, ok)
	assert.Equal(t, domain.DeliveryStatusDelivered, d.Status)
}

func TestWorker_RejectsMalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte("{not json")},
		{name: "missing id", body: []byte(`{"kind":"email","email":{"to":"a@example.com"}}`)},
		{name: "unknown kind", body: []byte(`{"id":"x","kind":"fax"}`)},
		{name: "sms without recipient", body: []byte(`{"id":"x","kind":"sms","sms":{"text":"hej"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := newFakeBroker()
			transport := &fakeTransport{}
			startWorker(t, broker, transport, 3)

			broker.deliveries <- amqp.Delivery{DeliveryTag: 7, Body: tt.body}

			s := waitSettled(t, broker, 7)
			assert.False(t, s.ack)
			assert.False(t, s.requeue)
			assert.Zero(t, transport.callCount())
		})
	}
}

func TestWorker_RequeuesTransientFailure(t *testing.T) {
	broker := newFakeBroker()
	transport := &fakeTransport{failures: 1}
	log := startWorker(t, broker, transport, 2)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: emailBody(t, "msg-1")}
	s := waitSettled(t, broker, 1)
	assert.False(t, s.ack)
	assert.True(t, s.requeue)

	d, _ := log.Delivery("msg-1")
	assert.Equal(t, domain.DeliveryStatusFailed, d.Status)
	assert.Equal(t, "provider unavailable", d.LastError)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 2, Body: emailBody(t, "msg-1"), Redelivered: true}
	s = waitSettled(t, broker, 2)
	assert.True(t, s.ack)

	d, _ = log.Delivery("msg-1")
	assert.Equal(t, domain.DeliveryStatusDelivered, d.Status)
	assert.Equal(t, 2, d.Attempts)
}

func TestWorker_DeadLettersAfterMaxRetries(t *testing.T) {
	broker := newFakeBroker()
	transport := &fakeTransport{failures: 10}
	startWorker(t, broker, transport, 0)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: emailBody(t, "msg-1")}

	s := waitSettled(t, broker, 1)
	assert.False(t, s.ack)
	assert.False(t, s.requeue)
}

func TestWorker_SkipsDuplicates(t *testing.T) {
	broker := newFakeBroker()
	transport := &fakeTransport{}
	startWorker(t, broker, transport, 3)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 1, Body: emailBody(t, "msg-1")}
	waitSettled(t, broker, 1)

	broker.deliveries <- amqp.Delivery{DeliveryTag: 2, Body: emailBody(t, "msg-1"), Redelivered: true}
	s := waitSettled(t, broker, 2)

	assert.True(t, s.ack)
	assert.Equal(t, 1, transport.callCount())
}

func TestWorker_StartFailsWhenDeliveriesClose(t *testing.T) {
	broker := newFakeBroker()
	close(broker.deliveries)

	w := NewWorker(&Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Broker:    broker,
		Log:       storage.NewMemory(),
		Transport: &fakeTransport{},
	})

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeliveriesClosed)
	w.Stop()
}

func TestShouldRequeue(t *testing.T) {
	assert.True(t, shouldRequeue(domain.NewRetryableError(errors.New("timeout"))))
	assert.False(t, shouldRequeue(domain.ErrMaxRetriesExceeded))
	assert.False(t, shouldRequeue(errors.New("boom")))
}
