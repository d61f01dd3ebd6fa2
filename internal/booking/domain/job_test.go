package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		status   JobStatus
		valid    bool
		terminal bool
	}{
		{status: StatusPending, valid: true},
		{status: StatusAssigned, valid: true},
		{status: StatusStarted, valid: true},
		{status: StatusCompleted, valid: true, terminal: true},
		{status: StatusTimedOut, valid: true, terminal: true},
		{status: StatusWithdrawBefore24, valid: true, terminal: true},
		{status: StatusWithdrawAfter24, valid: true, terminal: true},
		{status: StatusNotCarriedOutCustomer, valid: true, terminal: true},
		{status: "withdrawnbefore24"},
		{status: ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestJobClone(t *testing.T) {
	session := "1:00:00"
	end := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cert := CertifiedLaw
	job := &Job{ID: 1, SessionTime: &session, EndAt: &end, Certified: &cert}

	c := job.Clone()
	*c.SessionTime = "2:00:00"
	*c.EndAt = end.Add(time.Hour)
	*c.Certified = CertifiedHealth

	assert.Equal(t, "1:00:00", *job.SessionTime)
	assert.Equal(t, end, *job.EndAt)
	assert.Equal(t, CertifiedLaw, *job.Certified)
}

func TestAssignmentActive(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, (&Assignment{}).Active())
	assert.False(t, (&Assignment{CancelAt: &at}).Active())
	assert.False(t, (&Assignment{CompletedAt: &at}).Active())
}

func TestErrors(t *testing.T) {
	assert.True(t, errors.Is(ErrJobNotFound, ErrNotFound))
	assert.True(t, errors.Is(ErrAssignmentNotFound, ErrNotFound))
	assert.True(t, errors.Is(Rejected("admin comment is required"), ErrValidationRejected))
	assert.EqualError(t, Rejected("x"), "validation rejected: x")
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, RoleTranslator.IsAdmin())
}
