package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (p *fakePublisher) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *fakePublisher) last(t *testing.T) *Message {
	t.Helper()
	require.NotEmpty(t, p.bodies)
	var msg Message
	require.NoError(t, json.Unmarshal(p.bodies[len(p.bodies)-1], &msg))
	return &msg
}

type fakePrefs map[int64]*domain.NotificationPreferences

func (f fakePrefs) NotificationPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	p, ok := f[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(pub Publisher, prefs PreferenceLookup, now time.Time) *Gateway {
	g := NewGateway(pub, prefs, Options{NightStartHour: 22, NightEndHour: 7, MorningHour: 8}, discardLogger())
	g.now = func() time.Time { return now }
	return g
}

func TestGateway_SendEmail(t *testing.T) {
	pub := &fakePublisher{}
	g := newTestGateway(pub, fakePrefs{}, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	err := g.SendEmail(context.Background(), "kund@example.com", "Kund", "Subject", "emails.job-accepted", map[string]any{"job_id": 1})
	require.NoError(t, err)

	msg := pub.last(t)
	assert.Equal(t, KindEmail, msg.Kind)
	assert.NotEmpty(t, msg.ID)
	require.NotNil(t, msg.Email)
	assert.Equal(t, "kund@example.com", msg.Email.To)
	assert.Equal(t, "emails.job-accepted", msg.Email.Template)
	assert.NoError(t, msg.Validate())
}

func TestGateway_SendPush(t *testing.T) {
	night := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	users := []*domain.User{{ID: 1, Email: "Anna@Example.com"}, {ID: 2, Email: "bjorn@example.com"}}

	t.Run("immediate", func(t *testing.T) {
		pub := &fakePublisher{}
		g := newTestGateway(pub, fakePrefs{}, night)

		require.NoError(t, g.SendPush(context.Background(), users, 9, map[string]any{"notification_type": "job_accepted"}, "hej", false))

		msg := pub.last(t)
		require.NotNil(t, msg.Push)
		assert.Equal(t, []int64{1, 2}, msg.Push.UserIDs)
		assert.Equal(t, []string{"anna@example.com", "bjorn@example.com"}, msg.Push.Emails)
		assert.Nil(t, msg.Push.SendAfter)
	})

	t.Run("delayed until morning", func(t *testing.T) {
		pub := &fakePublisher{}
		g := newTestGateway(pub, fakePrefs{}, night)

		require.NoError(t, g.SendPush(context.Background(), users[:1], 9, nil, "hej", true))

		msg := pub.last(t)
		require.NotNil(t, msg.Push.SendAfter)
		assert.True(t, msg.Push.SendAfter.Equal(time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)))
	})

	t.Run("no recipients publishes nothing", func(t *testing.T) {
		pub := &fakePublisher{}
		g := newTestGateway(pub, fakePrefs{}, night)

		require.NoError(t, g.SendPush(context.Background(), nil, 9, nil, "hej", false))
		assert.Empty(t, pub.bodies)
	})
}

func TestGateway_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	g := newTestGateway(pub, fakePrefs{}, time.Now())

	err := g.SendSMS(context.Background(), "+46700000000", "hej")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationDeliveryFailed)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestGateway_PushPolicy(t *testing.T) {
	prefs := fakePrefs{
		1: {},
		2: {NoNotifications: true},
		3: {NoNightTimePush: true},
	}
	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	night := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		userID      int64
		now         time.Time
		wantPush    bool
		wantDelayed bool
	}{
		{name: "default user by day", userID: 1, now: day, wantPush: true},
		{name: "default user at night", userID: 1, now: night, wantPush: true},
		{name: "opted out user", userID: 2, now: day, wantPush: false},
		{name: "no night push by day", userID: 3, now: day, wantPush: true},
		{name: "no night push at night", userID: 3, now: night, wantPush: true, wantDelayed: true},
		{name: "unknown user", userID: 9, now: night, wantPush: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(&fakePublisher{}, prefs, tt.now)
			assert.Equal(t, tt.wantPush, g.NeedsPush(context.Background(), tt.userID))
			assert.Equal(t, tt.wantDelayed, g.NeedsDelayedPush(context.Background(), tt.userID))
		})
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "email", msg: Message{ID: "1", Kind: KindEmail, Email: &Email{To: "a@b.se"}}},
		{name: "sms", msg: Message{ID: "1", Kind: KindSMS, SMS: &SMS{To: "+46"}}},
		{name: "push", msg: Message{ID: "1", Kind: KindPush, Push: &Push{UserIDs: []int64{1}}}},
		{name: "missing id", msg: Message{Kind: KindSMS, SMS: &SMS{To: "+46"}}, wantErr: true},
		{name: "email without payload", msg: Message{ID: "1", Kind: KindEmail}, wantErr: true},
		{name: "push without users", msg: Message{ID: "1", Kind: KindPush, Push: &Push{}}, wantErr: true},
		{name: "unknown kind", msg: Message{ID: "1", Kind: "fax"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLogTransport_Deliver(t *testing.T) {
	var buf bytes.Buffer
	tr := NewLogTransport(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := tr.Deliver(context.Background(), &Message{ID: "m1", Kind: KindEmail, Email: &Email{To: "a@b.se", Subject: "Hej"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Email delivered")
	assert.Contains(t, buf.String(), "a@b.se")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Deliver(ctx, &Message{ID: "m2", Kind: KindSMS, SMS: &SMS{To: "+46"}}), context.Canceled)
}
