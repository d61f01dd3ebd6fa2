package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/storage"
)

var now = time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)

const (
	adminID     int64 = 1
	customerID  int64 = 10
	translatorA int64 = 20
	translatorB int64 = 21
	translatorC int64 = 22
	swedishID   int64 = 1
	arabicID    int64 = 2
)

const customerMail = "kund@example.com"

type sentEmail struct {
	to       string
	subject  string
	template string
	data     map[string]any
}

type sentPush struct {
	userIDs []int64
	jobID   int64
	data    map[string]any
	text    string
	delayed bool
}

type fakeNotifier struct {
	mu      sync.Mutex
	emails  []sentEmail
	pushes  []sentPush
	sms     []string
	noPush  map[int64]bool
	night   map[int64]bool
	fail    bool
	onEmail func(template string)
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{noPush: map[int64]bool{}, night: map[int64]bool{}}
}

func (n *fakeNotifier) SendEmail(ctx context.Context, to, name, subject, template string, data map[string]any) error {
	if n.onEmail != nil {
		n.onEmail(template)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return domain.ErrNotificationDeliveryFailed
	}
	n.emails = append(n.emails, sentEmail{to: to, subject: subject, template: template, data: data})
	return nil
}

func (n *fakeNotifier) SendSMS(ctx context.Context, to, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return domain.ErrNotificationDeliveryFailed
	}
	n.sms = append(n.sms, to)
	return nil
}

func (n *fakeNotifier) SendPush(ctx context.Context, users []*domain.User, jobID int64, data map[string]any, text string, delayed bool) error {
	if len(users) == 0 {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return domain.ErrNotificationDeliveryFailed
	}
	p := sentPush{jobID: jobID, data: data, text: text, delayed: delayed}
	for _, u := range users {
		p.userIDs = append(p.userIDs, u.ID)
	}
	n.pushes = append(n.pushes, p)
	return nil
}

func (n *fakeNotifier) NeedsPush(ctx context.Context, userID int64) bool {
	return !n.noPush[userID]
}

func (n *fakeNotifier) NeedsDelayedPush(ctx context.Context, userID int64) bool {
	return n.night[userID]
}

func (n *fakeNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.emails {
		out = append(out, e.template)
	}
	return out
}

func (n *fakeNotifier) emailsTo(to string) []sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEmail
	for _, e := range n.emails {
		if e.to == to {
			out = append(out, e)
		}
	}
	return out
}

func (n *fakeNotifier) pushesOfType(kind string) []sentPush {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentPush
	for _, p := range n.pushes {
		if p.data["notification_type"] == kind {
			out = append(out, p)
		}
	}
	return out
}

type fakeFeed struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (f *fakeFeed) Publish(event domain.BookingEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeFeed) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EventType
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore refuses every transaction
type failingStore struct {
	*storage.Memory
}

func (s failingStore) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return errors.New("connection reset")
}

type fixture struct {
	svc      *Service
	store    *storage.Memory
	notifier *fakeNotifier
	feed     *fakeFeed
}

func newTranslator(id int64, email string) *domain.User {
	return &domain.User{
		ID:              id,
		Name:            "Tolk",
		Email:           email,
		Mobile:          "+4670000000",
		Role:            domain.RoleTranslator,
		TranslatorType:  domain.TranslatorTypeProfessional,
		TranslatorLevel: domain.LevelCertified,
		Gender:          string(domain.GenderFemale),
	}
}

func seed(store *storage.Memory) {
	store.AddLanguage(swedishID, "Svenska")
	store.AddLanguage(arabicID, "Arabiska")
	store.AddUser(&domain.User{ID: adminID, Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin})
	store.AddUser(&domain.User{ID: customerID, Name: "Kund", Email: customerMail, Role: domain.RoleCustomer, City: "Stockholm"})
	for id, email := range map[int64]string{translatorA: "a@example.com", translatorB: "b@example.com", translatorC: "c@example.com"} {
		store.AddUser(newTranslator(id, email))
		store.AddTranslatorLanguage(id, swedishID)
		store.AddTranslatorLanguage(id, arabicID)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemory()
	seed(store)
	return newFixtureWithStore(t, store, store)
}

func newFixtureWithStore(t *testing.T, mem *storage.Memory, store domain.Store) *fixture {
	t.Helper()
	f := &fixture{store: mem, notifier: newFakeNotifier(), feed: &fakeFeed{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(store, f.notifier, f.feed, Options{AdminEmail: "admin@example.com"}, logger)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) job(t *testing.T, status domain.JobStatus, due time.Time) *domain.Job {
	t.Helper()
	job := &domain.Job{
		UserID:         customerID,
		Status:         status,
		Due:            due,
		FromLanguageID: swedishID,
		JobType:        domain.JobTypePaid,
		Duration:       60,
		CreatedAt:      now.Add(-time.Hour),
		UpdatedAt:      now.Add(-time.Hour),
	}
	require.NoError(t, f.store.CreateJob(context.Background(), job))
	return job
}

func (f *fixture) assign(t *testing.T, jobID, translatorID int64) *domain.Assignment {
	t.Helper()
	a := &domain.Assignment{UserID: translatorID, JobID: jobID, CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, f.store.CreateAssignment(context.Background(), a))
	return a
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := f.store.FindUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) stored(t *testing.T, id int64) *domain.Job {
	t.Helper()
	job, err := f.store.FindJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func ptr[T any](v T) *T {
	return &v
}
