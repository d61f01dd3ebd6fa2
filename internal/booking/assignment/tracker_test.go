package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/storage"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*storage.Memory, *Tracker, *domain.Job) {
	t.Helper()

	store := storage.NewMemory()
	store.AddUser(&domain.User{ID: 1, Email: "anna@example.com", Role: domain.RoleTranslator})
	store.AddUser(&domain.User{ID: 2, Email: "bjorn@example.com", Role: domain.RoleTranslator})

	job := &domain.Job{Status: domain.StatusPending, Due: time.Now().Add(48 * time.Hour)}
	require.NoError(t, store.CreateJob(context.Background(), job))

	return store, NewTracker(store), job
}

func reassign(t *testing.T, store *storage.Memory, tr *Tracker, jobID int64, req domain.UpdateRequest, at time.Time) Change {
	t.Helper()
	ctx := context.Background()

	current, err := store.ActiveAssignment(ctx, jobID)
	require.NoError(t, err)

	change, err := tr.Plan(ctx, current, req)
	require.NoError(t, err)

	_, err = tr.Apply(ctx, store, jobID, change, at)
	require.NoError(t, err)
	return change
}

func TestTracker_Plan(t *testing.T) {
	ctx := context.Background()
	store, tr, job := setup(t)
	current := &domain.Assignment{ID: 7, UserID: 1, JobID: job.ID}

	tests := []struct {
		name        string
		current     *domain.Assignment
		req         domain.UpdateRequest
		wantChanged bool
		wantOld     string
		wantNew     string
	}{
		{
			name: "no translator fields",
			req:  domain.UpdateRequest{},
		},
		{
			name: "zero id and empty email",
			req:  domain.UpdateRequest{TranslatorID: ptr(int64(0)), TranslatorEmail: ptr("")},
		},
		{
			name:        "first assignment by id",
			req:         domain.UpdateRequest{TranslatorID: ptr(int64(1))},
			wantChanged: true,
			wantNew:     "anna@example.com",
		},
		{
			name:        "first assignment by email",
			req:         domain.UpdateRequest{TranslatorEmail: ptr("BJORN@example.com")},
			wantChanged: true,
			wantNew:     "bjorn@example.com",
		},
		{
			name:    "same translator keeps assignment",
			current: current,
			req:     domain.UpdateRequest{TranslatorID: ptr(int64(1))},
		},
		{
			name:    "same translator by email keeps assignment",
			current: current,
			req:     domain.UpdateRequest{TranslatorEmail: ptr("anna@example.com")},
		},
		{
			name:        "different translator",
			current:     current,
			req:         domain.UpdateRequest{TranslatorID: ptr(int64(2))},
			wantChanged: true,
			wantOld:     "anna@example.com",
			wantNew:     "bjorn@example.com",
		},
		{
			name:        "email wins over id",
			current:     current,
			req:         domain.UpdateRequest{TranslatorID: ptr(int64(1)), TranslatorEmail: ptr("bjorn@example.com")},
			wantChanged: true,
			wantOld:     "anna@example.com",
			wantNew:     "bjorn@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := tr.Plan(ctx, tt.current, tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantChanged, change.Changed)
			if tt.wantChanged {
				log := change.Log()
				assert.Equal(t, domain.ChangeTranslator, log.Kind)
				assert.Equal(t, tt.wantOld, log.Old)
				assert.Equal(t, tt.wantNew, log.New)
			}
		})
	}

	history, err := store.AssignmentHistory(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "planning must not write")
}

func TestTracker_PlanUnknownTranslator(t *testing.T) {
	ctx := context.Background()
	_, tr, _ := setup(t)

	_, err := tr.Plan(ctx, nil, domain.UpdateRequest{TranslatorEmail: ptr("nobody@example.com")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = tr.Plan(ctx, nil, domain.UpdateRequest{TranslatorID: ptr(int64(99))})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTracker_RoundTripKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store, tr, job := setup(t)

	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	first := reassign(t, store, tr, job.ID, domain.UpdateRequest{TranslatorID: ptr(int64(1))}, t0)
	require.True(t, first.Changed)

	toB := reassign(t, store, tr, job.ID, domain.UpdateRequest{TranslatorID: ptr(int64(2))}, t1)
	require.True(t, toB.Changed)

	backToA := reassign(t, store, tr, job.ID, domain.UpdateRequest{TranslatorEmail: ptr("anna@example.com")}, t2)
	require.True(t, backToA.Changed)
	assert.Equal(t, "bjorn@example.com", backToA.Log().Old)
	assert.Equal(t, "anna@example.com", backToA.Log().New)

	history, err := store.AssignmentHistory(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, int64(1), history[0].UserID)
	require.NotNil(t, history[0].CancelAt)
	assert.Equal(t, t1, *history[0].CancelAt)

	assert.Equal(t, int64(2), history[1].UserID)
	require.NotNil(t, history[1].CancelAt)
	assert.Equal(t, t2, *history[1].CancelAt)
	assert.True(t, history[0].CancelAt.Before(*history[1].CancelAt))

	active, err := store.ActiveAssignment(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(1), active.UserID)
	assert.Equal(t, history[2].ID, active.ID)
}

func TestTracker_ApplyWithoutChangeIsNoop(t *testing.T) {
	ctx := context.Background()
	store, tr, job := setup(t)

	a, err := tr.Apply(ctx, store, job.ID, Change{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, a)

	history, err := store.AssignmentHistory(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
