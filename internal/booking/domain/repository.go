package domain

import (
	"context"
	"time"
)

// JobRepository persists bookings
type JobRepository interface {
	FindJob(ctx context.Context, id int64) (*Job, error)
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
}

// AssignmentRepository persists the translator history of bookings
type AssignmentRepository interface {
	// ActiveAssignment returns nil, nil when the job has no active assignment
	ActiveAssignment(ctx context.Context, jobID int64) (*Assignment, error)
	CreateAssignment(ctx context.Context, a *Assignment) error
	CancelAssignment(ctx context.Context, id int64, at time.Time) error
	CompleteAssignment(ctx context.Context, id int64, at time.Time, by int64) error
	CancelActiveAssignments(ctx context.Context, jobID int64, at time.Time) error
	AssignmentHistory(ctx context.Context, jobID int64) ([]*Assignment, error)

	// IsTranslatorBooked reports whether the translator holds another active
	// booking due at the same time as jobID
	IsTranslatorBooked(ctx context.Context, translatorID, jobID int64, due time.Time) (bool, error)

	// ClaimPendingJob moves a pending job to assigned and inserts the assignment
	// as one atomic operation. ErrJobAlreadyAccepted is returned when the job
	// is no longer pending.
	ClaimPendingJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*Assignment, error)
}

// UserRepository resolves customers and translators
type UserRepository interface {
	FindUser(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	PotentialTranslators(ctx context.Context, criteria TranslatorCriteria) ([]*User, error)
	NotificationPreferences(ctx context.Context, userID int64) (*NotificationPreferences, error)
}

// LanguageRepository resolves language names
type LanguageRepository interface {
	LanguageName(ctx context.Context, id int64) (string, error)
}

// Store groups every repository. WithinTx runs fn against a store bound to a
// single transaction, committing only when fn returns nil.
type Store interface {
	JobRepository
	AssignmentRepository
	UserRepository
	LanguageRepository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
