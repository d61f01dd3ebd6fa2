package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongbtq/booking-be/internal/worker/domain"
)

type memoryRecord struct {
	delivery  domain.Delivery
	updatedAt time.Time
}

// Memory is the in-process delivery log used with the memory database driver
type Memory struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	now     func() time.Time
}

// NewMemory creates an empty delivery log
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*memoryRecord),
		now:     time.Now,
	}
}

func (m *Memory) ClaimDelivery(ctx context.Context, messageID, kind, workerID string, staleAfter time.Duration) (*domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec, ok := m.records[messageID]
	if !ok {
		rec = &memoryRecord{delivery: domain.Delivery{MessageID: messageID, Kind: kind}}
		m.records[messageID] = rec
	} else {
		stale := rec.delivery.Status == domain.DeliveryStatusProcessing && now.Sub(rec.updatedAt) > staleAfter
		if rec.delivery.Status != domain.DeliveryStatusFailed && !stale {
			return nil, domain.ErrDeliveryAlreadyClaimed
		}
	}

	rec.delivery.Status = domain.DeliveryStatusProcessing
	rec.delivery.WorkerID = workerID
	rec.delivery.Attempts++
	rec.updatedAt = now

	d := rec.delivery
	return &d, nil
}

func (m *Memory) MarkDelivered(ctx context.Context, messageID string) error {
	return m.setStatus(messageID, domain.DeliveryStatusDelivered, "")
}

func (m *Memory) MarkFailed(ctx context.Context, messageID, errorMsg string) error {
	return m.setStatus(messageID, domain.DeliveryStatusFailed, errorMsg)
}

// Delivery returns a copy of the record for messageID
func (m *Memory) Delivery(messageID string) (domain.Delivery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[messageID]
	if !ok {
		return domain.Delivery{}, false
	}
	return rec.delivery, true
}

func (m *Memory) setStatus(messageID, status, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[messageID]
	if !ok {
		return fmt.Errorf("delivery %s not found", messageID)
	}
	rec.delivery.Status = status
	rec.delivery.LastError = errorMsg
	rec.updatedAt = m.now()
	return nil
}
