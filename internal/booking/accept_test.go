package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

func TestAcceptJob_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

	res, err := f.svc.AcceptJob(ctx, job.ID, f.user(t, translatorA))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, res.Status)
	require.NotNil(t, res.Job)
	assert.Equal(t, domain.StatusAssigned, res.Job.Status)
	assert.Equal(t, domain.StatusAssigned, f.stored(t, job.ID).Status)

	active, err := f.store.ActiveAssignment(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, translatorA, active.UserID)

	emails := f.notifier.emailsTo(customerMail)
	require.Len(t, emails, 1)
	assert.Equal(t, "emails.job-accepted", emails[0].template)
	assert.Equal(t, fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", job.ID), emails[0].subject)
	assert.Equal(t, []domain.EventType{domain.EventBookingAccepted}, f.feed.types())
}

func TestAcceptJob_Fails(t *testing.T) {
	due := now.Add(48 * time.Hour)

	tests := []struct {
		name        string
		setup       func(t *testing.T, f *fixture) *domain.Job
		wantMessage string
		wantStatus  domain.JobStatus
	}{
		{
			name: "translator already booked at that time",
			setup: func(t *testing.T, f *fixture) *domain.Job {
				other := f.job(t, domain.StatusAssigned, due)
				f.assign(t, other.ID, translatorA)
				return f.job(t, domain.StatusPending, due)
			},
			wantMessage: "Du har redan en bokning den tiden",
			wantStatus:  domain.StatusPending,
		},
		{
			name: "job no longer pending",
			setup: func(t *testing.T, f *fixture) *domain.Job {
				job := f.job(t, domain.StatusAssigned, due)
				f.assign(t, job.ID, translatorB)
				return job
			},
			wantMessage: "har redan accepterats av annan tolk",
			wantStatus:  domain.StatusAssigned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := tt.setup(t, f)

			res, err := f.svc.AcceptJob(context.Background(), job.ID, f.user(t, translatorA))
			require.NoError(t, err)

			assert.Equal(t, domain.OutcomeFail, res.Status)
			assert.Contains(t, res.Message, tt.wantMessage)
			assert.Equal(t, tt.wantStatus, f.stored(t, job.ID).Status)
			assert.Empty(t, f.notifier.templates())
		})
	}
}

func TestAcceptJob_RequiresTranslator(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

	_, err := f.svc.AcceptJob(context.Background(), job.ID, f.user(t, customerID))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.svc.AcceptJob(context.Background(), 404, f.user(t, translatorA))
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestAcceptJob_ConcurrentAcceptanceHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

	const translators = 12
	users := make([]*domain.User, 0, translators)
	for i := 0; i < translators; i++ {
		u := newTranslator(int64(100+i), fmt.Sprintf("tolk%d@example.com", i))
		f.store.AddUser(u)
		users = append(users, u)
	}

	var wg sync.WaitGroup
	results := make(chan *domain.AcceptResult, translators)
	for _, u := range users {
		wg.Add(1)
		go func(u *domain.User) {
			defer wg.Done()
			res, err := f.svc.AcceptJob(ctx, job.ID, u)
			if err != nil {
				t.Errorf("accept failed: %v", err)
				return
			}
			results <- res
		}(u)
	}
	wg.Wait()
	close(results)

	wins := 0
	for res := range results {
		if res.Status == domain.OutcomeSuccess {
			wins++
			continue
		}
		assert.Contains(t, res.Message, "har redan accepterats av annan tolk")
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, domain.StatusAssigned, f.stored(t, job.ID).Status)

	history, err := f.store.AssignmentHistory(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAcceptJobWithID(t *testing.T) {
	t.Run("pushes the customer", func(t *testing.T) {
		f := newFixture(t)
		job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

		res, err := f.svc.AcceptJobWithID(context.Background(), job.ID, f.user(t, translatorA))
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeSuccess, res.Status)
		assert.Equal(t, "Du har nu accepterat och fått bokningen för Svenskatolk 60min 2025-05-07 12:00:00", res.Message)

		pushes := f.notifier.pushesOfType(pushJobAccepted)
		require.Len(t, pushes, 1)
		assert.Equal(t, []int64{customerID}, pushes[0].userIDs)
		assert.False(t, pushes[0].delayed)
	})

	t.Run("night owl customer gets a delayed push", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.night[customerID] = true
		job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

		_, err := f.svc.AcceptJobWithID(context.Background(), job.ID, f.user(t, translatorA))
		require.NoError(t, err)

		pushes := f.notifier.pushesOfType(pushJobAccepted)
		require.Len(t, pushes, 1)
		assert.True(t, pushes[0].delayed)
	})

	t.Run("opted out customer gets no push", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.noPush[customerID] = true
		job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

		res, err := f.svc.AcceptJobWithID(context.Background(), job.ID, f.user(t, translatorA))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeSuccess, res.Status)
		assert.Empty(t, f.notifier.pushesOfType(pushJobAccepted))
	})

	t.Run("lost race", func(t *testing.T) {
		f := newFixture(t)
		job := f.job(t, domain.StatusPending, now.Add(48*time.Hour))

		_, err := f.svc.AcceptJobWithID(context.Background(), job.ID, f.user(t, translatorB))
		require.NoError(t, err)

		res, err := f.svc.AcceptJobWithID(context.Background(), job.ID, f.user(t, translatorA))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeFail, res.Status)
		assert.Equal(t, "Denna Svenskatolkning 60min 2025-05-07 12:00:00 har redan accepterats av annan tolk. Du har inte fått denna tolkning", res.Message)
	})
}
