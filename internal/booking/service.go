package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/assignment"
	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/schedule"
	"github.com/cuongbtq/booking-be/internal/booking/transition"
)

// Notifier sends email, SMS and push notifications
type Notifier interface {
	SendEmail(ctx context.Context, to, name, subject, template string, data map[string]any) error
	SendSMS(ctx context.Context, to, text string) error
	SendPush(ctx context.Context, users []*domain.User, jobID int64, data map[string]any, text string, delayed bool) error
	NeedsPush(ctx context.Context, userID int64) bool
	NeedsDelayedPush(ctx context.Context, userID int64) bool
}

// Broadcaster receives every booking change after it has been saved
type Broadcaster interface {
	Publish(event domain.BookingEvent)
}

// Options configures the workflow
type Options struct {
	// AdminEmail receives immediate bookings
	AdminEmail string
	// Location is used to render due times in messages
	Location *time.Location
}

// Service runs the booking workflows. It is the only component that writes
// bookings and sends notifications.
type Service struct {
	store    domain.Store
	engine   *transition.Engine
	tracker  *assignment.Tracker
	notifier Notifier
	feed     Broadcaster
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a booking service. feed may be nil.
func NewService(store domain.Store, notifier Notifier, feed Broadcaster, opts Options, logger *slog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:    store,
		engine:   transition.NewEngine(),
		tracker:  assignment.NewTracker(store),
		notifier: notifier,
		feed:     feed,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// GetJob returns a booking with its translator history
func (s *Service) GetJob(ctx context.Context, id int64) (*domain.JobDetail, error) {
	job, err := s.store.FindJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", id, err)
	}

	history, err := s.store.AssignmentHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments of job %d: %w", id, err)
	}

	return &domain.JobDetail{Job: job, Assignments: history}, nil
}

func (s *Service) publish(eventType domain.EventType, job *domain.Job, actorID int64, changes []domain.LogEntry) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(domain.BookingEvent{
		Type:    eventType,
		JobID:   job.ID,
		ActorID: actorID,
		Status:  job.Status,
		Changes: changes,
		At:      s.now().UTC(),
	})
}

// delivered logs a failed notification. Delivery failures never undo a saved change.
func (s *Service) delivered(err error, what string, jobID int64) {
	if err == nil {
		return
	}
	s.logger.Error("Failed to send notification",
		slog.String("notification", what),
		slog.Int64("job_id", jobID),
		slog.Any("error", err),
	)
}

func (s *Service) formatTime(t time.Time) string {
	return t.In(s.opts.Location).Format(schedule.DateTimeLayout)
}
