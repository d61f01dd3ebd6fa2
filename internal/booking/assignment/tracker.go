package assignment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// UserLookup resolves translators by id or email
type UserLookup interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Change is a planned translator reassignment
type Change struct {
	Changed bool
	// Previous is the assignment that will be cancelled, nil when the job had none
	Previous *domain.Assignment
	Old      *domain.User
	New      *domain.User
}

// Log returns the audit entry of the reassignment
func (c Change) Log() domain.LogEntry {
	entry := domain.LogEntry{Kind: domain.ChangeTranslator}
	if c.Old != nil {
		entry.Old = c.Old.Email
	}
	if c.New != nil {
		entry.New = c.New.Email
	}
	return entry
}

// Tracker keeps at most one active assignment per job and never rewrites
// a row to point at another translator
type Tracker struct {
	users UserLookup
}

// NewTracker creates a tracker
func NewTracker(users UserLookup) *Tracker {
	return &Tracker{users: users}
}

// Plan works out whether req reassigns the job. It only reads; a translator
// that cannot be resolved aborts with a NotFound error.
func (t *Tracker) Plan(ctx context.Context, current *domain.Assignment, req domain.UpdateRequest) (Change, error) {
	requested, err := t.resolve(ctx, req)
	if err != nil {
		return Change{}, err
	}
	if requested == nil {
		return Change{}, nil
	}

	if current == nil {
		return Change{Changed: true, New: requested}, nil
	}

	if current.UserID == requested.ID {
		return Change{}, nil
	}

	old, err := t.users.FindUser(ctx, current.UserID)
	if err != nil {
		return Change{}, fmt.Errorf("failed to load current translator %d: %w", current.UserID, err)
	}

	return Change{Changed: true, Previous: current, Old: old, New: requested}, nil
}

// Apply writes a planned change: the previous assignment gets cancel_at and a
// new active row is appended for the new translator
func (t *Tracker) Apply(ctx context.Context, repo domain.AssignmentRepository, jobID int64, change Change, now time.Time) (*domain.Assignment, error) {
	if !change.Changed {
		return nil, nil
	}

	if change.Previous != nil {
		if err := repo.CancelAssignment(ctx, change.Previous.ID, now); err != nil {
			return nil, fmt.Errorf("failed to cancel assignment %d: %w", change.Previous.ID, err)
		}
	}

	a := &domain.Assignment{
		UserID:    change.New.ID,
		JobID:     jobID,
		CreatedAt: now,
	}
	if err := repo.CreateAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return a, nil
}

// resolve returns the translator the request names, or nil when it names none.
// An email wins over an id.
func (t *Tracker) resolve(ctx context.Context, req domain.UpdateRequest) (*domain.User, error) {
	if req.TranslatorEmail != nil {
		if email := strings.TrimSpace(*req.TranslatorEmail); email != "" {
			u, err := t.users.FindUserByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve translator %q: %w", email, err)
			}
			return u, nil
		}
	}

	if req.TranslatorID != nil && *req.TranslatorID != 0 {
		u, err := t.users.FindUser(ctx, *req.TranslatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve translator %d: %w", *req.TranslatorID, err)
		}
		return u, nil
	}

	return nil, nil
}
