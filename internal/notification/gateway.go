package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/schedule"
)

const contentTypeJSON = "application/json"

// Publisher sends a message body to the broker
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// PreferenceLookup loads the push opt-outs of a user
type PreferenceLookup interface {
	NotificationPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error)
}

// Options configures the push policy
type Options struct {
	Location       *time.Location
	NightStartHour int
	NightEndHour   int
	MorningHour    int
}

// Gateway queues email, SMS and push notifications for the worker service
type Gateway struct {
	publisher Publisher
	prefs     PreferenceLookup
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewGateway creates a gateway
func NewGateway(publisher Publisher, prefs PreferenceLookup, opts Options, logger *slog.Logger) *Gateway {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Gateway{
		publisher: publisher,
		prefs:     prefs,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// SendEmail queues a templated mail
func (g *Gateway) SendEmail(ctx context.Context, to, name, subject, template string, data map[string]any) error {
	return g.publish(ctx, &Message{
		Kind: KindEmail,
		Email: &Email{
			To:       to,
			Name:     name,
			Subject:  subject,
			Template: template,
			Data:     data,
		},
	})
}

// SendSMS queues a text message
func (g *Gateway) SendSMS(ctx context.Context, to, text string) error {
	return g.publish(ctx, &Message{
		Kind: KindSMS,
		SMS:  &SMS{To: to, Text: text},
	})
}

// SendPush queues a push to users. Delayed pushes are held until the next
// morning.
func (g *Gateway) SendPush(ctx context.Context, users []*domain.User, jobID int64, data map[string]any, text string, delayed bool) error {
	if len(users) == 0 {
		return nil
	}

	push := &Push{
		JobID:   jobID,
		Data:    data,
		Text:    text,
		Delayed: delayed,
	}
	for _, u := range users {
		push.UserIDs = append(push.UserIDs, u.ID)
		push.Emails = append(push.Emails, strings.ToLower(u.Email))
	}
	if delayed {
		after := schedule.NextMorning(g.now().In(g.opts.Location), g.opts.MorningHour)
		push.SendAfter = &after
	}

	return g.publish(ctx, &Message{Kind: KindPush, Push: push})
}

// NeedsPush reports whether the user accepts push notifications
func (g *Gateway) NeedsPush(ctx context.Context, userID int64) bool {
	prefs, err := g.prefs.NotificationPreferences(ctx, userID)
	if err != nil {
		g.logger.Warn("Failed to load notification preferences",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}
	return !prefs.NoNotifications
}

// NeedsDelayedPush reports whether a push must wait for the morning: it is
// night now and the user opted out of night time pushes
func (g *Gateway) NeedsDelayedPush(ctx context.Context, userID int64) bool {
	if !schedule.IsNight(g.now().In(g.opts.Location), g.opts.NightStartHour, g.opts.NightEndHour) {
		return false
	}

	prefs, err := g.prefs.NotificationPreferences(ctx, userID)
	if err != nil {
		g.logger.Warn("Failed to load notification preferences",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}
	return prefs.NoNightTimePush
}

func (g *Gateway) publish(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = g.now().UTC()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal %s notification: %w", domain.ErrNotificationDeliveryFailed, msg.Kind, err)
	}

	if err := g.publisher.PublishWithRetry(ctx, body, contentTypeJSON); err != nil {
		return fmt.Errorf("%w: failed to publish %s notification: %w", domain.ErrNotificationDeliveryFailed, msg.Kind, err)
	}

	g.logger.Debug("Notification queued",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
	)
	return nil
}
