package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

const uniqueViolation = "23505"

const jobColumns = `id, user_id, status, due, from_language_id, job_type, certified, gender,
	immediate, duration, session_time, admin_comments, reference, user_email,
	customer_phone_type, customer_physical_type, town, email_sent, email_sent_to_partner,
	created_at, updated_at, will_expire_at, end_at, withdraw_at`

const assignmentColumns = `id, user_id, job_id, created_at, cancel_at, completed_at, completed_by`

const userColumns = `id, name, email, phone, mobile, role, translator_type, translator_level,
	gender, city, customer_type, not_get_notification, not_get_nighttime`

// Postgres implements domain.Store on top of sqlx and lib/pq
type Postgres struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	tx     *sqlx.Tx
	logger *slog.Logger
}

var _ domain.Store = (*Postgres)(nil)

// NewPostgres creates a store on an open connection pool
func NewPostgres(db *sqlx.DB, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		q:      db,
		logger: logger,
	}
}

// Migrate creates the booking tables when they do not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	p.logger.Info("Booking schema is up to date")
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// WithinTx runs fn in one transaction. Calls on a store that is already
// transactional join the running transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return p.withTx(ctx, func(tx *Postgres) error {
		return fn(tx)
	})
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx *Postgres) error) error {
	if p.tx != nil {
		return fn(p)
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				p.logger.Error("Failed to rollback transaction", slog.Any("error", rbErr))
			}
		}
	}()

	if err := fn(&Postgres{db: p.db, q: tx, tx: tx, logger: p.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (p *Postgres) FindJob(ctx context.Context, id int64) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var job domain.Job
	if err := sqlx.GetContext(ctx, p.q, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (p *Postgres) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			user_id, status, due, from_language_id, job_type, certified, gender,
			immediate, duration, session_time, admin_comments, reference, user_email,
			customer_phone_type, customer_physical_type, town, email_sent, email_sent_to_partner,
			created_at, updated_at, will_expire_at, end_at, withdraw_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`

	err := p.q.QueryRowxContext(ctx, query,
		job.UserID, job.Status, job.Due, job.FromLanguageID, job.JobType, job.Certified, job.Gender,
		job.Immediate, job.Duration, job.SessionTime, job.AdminComments, job.Reference, job.UserEmail,
		job.CustomerPhoneType, job.CustomerPhysicalType, job.Town, job.EmailSent, job.EmailSentToPartner,
		job.CreatedAt, job.UpdatedAt, job.WillExpireAt, job.EndAt, job.WithdrawAt,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	p.logger.Debug("Job inserted", slog.Int64("job_id", job.ID))
	return nil
}

func (p *Postgres) UpdateJob(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs SET
			status = $1, due = $2, from_language_id = $3, job_type = $4, certified = $5, gender = $6,
			immediate = $7, duration = $8, session_time = $9, admin_comments = $10, reference = $11,
			user_email = $12, customer_phone_type = $13, customer_physical_type = $14, town = $15,
			email_sent = $16, email_sent_to_partner = $17, created_at = $18, updated_at = $19,
			will_expire_at = $20, end_at = $21, withdraw_at = $22
		WHERE id = $23
	`

	res, err := p.q.ExecContext(ctx, query,
		job.Status, job.Due, job.FromLanguageID, job.JobType, job.Certified, job.Gender,
		job.Immediate, job.Duration, job.SessionTime, job.AdminComments, job.Reference,
		job.UserEmail, job.CustomerPhoneType, job.CustomerPhysicalType, job.Town,
		job.EmailSent, job.EmailSentToPartner, job.CreatedAt, job.UpdatedAt,
		job.WillExpireAt, job.EndAt, job.WithdrawAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (p *Postgres) ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM translator_assignments
		WHERE job_id = $1 AND cancel_at IS NULL AND completed_at IS NULL
	`

	var a domain.Assignment
	if err := sqlx.GetContext(ctx, p.q, &a, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active assignment: %w", err)
	}
	return &a, nil
}

func (p *Postgres) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO translator_assignments (user_id, job_id, created_at, cancel_at, completed_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := p.q.QueryRowxContext(ctx, query, a.UserID, a.JobID, a.CreatedAt, a.CancelAt, a.CompletedAt, a.CompletedBy).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActiveAssignmentExists
		}
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (p *Postgres) CancelAssignment(ctx context.Context, id int64, at time.Time) error {
	return p.stampAssignment(ctx, `UPDATE translator_assignments SET cancel_at = $1 WHERE id = $2`, at, id)
}

func (p *Postgres) CompleteAssignment(ctx context.Context, id int64, at time.Time, by int64) error {
	return p.stampAssignment(ctx, `UPDATE translator_assignments SET completed_at = $1, completed_by = $2 WHERE id = $3`, at, by, id)
}

func (p *Postgres) stampAssignment(ctx context.Context, query string, args ...interface{}) error {
	res, err := p.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %v", domain.ErrAssignmentNotFound, args[len(args)-1])
	}
	return nil
}

func (p *Postgres) CancelActiveAssignments(ctx context.Context, jobID int64, at time.Time) error {
	query := `UPDATE translator_assignments SET cancel_at = $1 WHERE job_id = $2 AND cancel_at IS NULL`
	if _, err := p.q.ExecContext(ctx, query, at, jobID); err != nil {
		return fmt.Errorf("failed to cancel assignments: %w", err)
	}
	return nil
}

func (p *Postgres) AssignmentHistory(ctx context.Context, jobID int64) ([]*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM translator_assignments WHERE job_id = $1 ORDER BY id`

	var out []*domain.Assignment
	if err := sqlx.SelectContext(ctx, p.q, &out, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to select assignments: %w", err)
	}
	return out, nil
}

func (p *Postgres) IsTranslatorBooked(ctx context.Context, translatorID, jobID int64, due time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM translator_assignments a
			JOIN jobs j ON j.id = a.job_id
			WHERE a.user_id = $1
			  AND a.job_id <> $2
			  AND j.due = $3
			  AND a.cancel_at IS NULL
			  AND a.completed_at IS NULL
		)
	`

	var booked bool
	if err := sqlx.GetContext(ctx, p.q, &booked, query, translatorID, jobID, due); err != nil {
		return false, fmt.Errorf("failed to check translator bookings: %w", err)
	}
	return booked, nil
}

// ClaimPendingJob uses a conditional update as the serialization point: of two
// concurrent claims only one sees the row still pending.
func (p *Postgres) ClaimPendingJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	var claimed *domain.Assignment

	err := p.withTx(ctx, func(tx *Postgres) error {
		query := `
			UPDATE jobs
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
			RETURNING id
		`

		var id int64
		err := tx.q.QueryRowxContext(ctx, query, domain.StatusAssigned, at, jobID, domain.StatusPending).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrJobAlreadyAccepted
			}
			return fmt.Errorf("failed to claim job: %w", err)
		}

		a := &domain.Assignment{UserID: translatorID, JobID: jobID, CreatedAt: at}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			if errors.Is(err, domain.ErrActiveAssignmentExists) {
				return domain.ErrJobAlreadyAccepted
			}
			return err
		}

		claimed = a
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyAccepted) {
			p.logger.Warn("Failed to claim job - already accepted or not pending",
				slog.Int64("job_id", jobID),
				slog.Int64("translator_id", translatorID),
			)
		}
		return nil, err
	}

	p.logger.Info("Job claimed successfully",
		slog.Int64("job_id", jobID),
		slog.Int64("translator_id", translatorID),
	)
	return claimed, nil
}

func (p *Postgres) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	return p.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return p.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (p *Postgres) getUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var u domain.User
	if err := sqlx.GetContext(ctx, p.q, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) PotentialTranslators(ctx context.Context, criteria domain.TranslatorCriteria) ([]*domain.User, error) {
	var b strings.Builder
	args := []interface{}{domain.RoleTranslator, criteria.CustomerID, criteria.ExcludeUserID}

	b.WriteString(`SELECT ` + userColumns + ` FROM users u
		WHERE u.role = ?
		  AND u.id NOT IN (SELECT translator_id FROM users_blacklist WHERE user_id = ?)
		  AND u.id <> ?`)

	if criteria.TranslatorType != "" {
		b.WriteString(` AND u.translator_type = ?`)
		args = append(args, criteria.TranslatorType)
	}
	if criteria.Gender != nil {
		b.WriteString(` AND u.gender = ?`)
		args = append(args, string(*criteria.Gender))
	}
	if len(criteria.Levels) > 0 {
		b.WriteString(` AND u.translator_level IN (?)`)
		args = append(args, criteria.Levels)
	}
	if criteria.LanguageID != 0 {
		b.WriteString(` AND EXISTS (SELECT 1 FROM translator_languages tl WHERE tl.user_id = u.id AND tl.language_id = ?)`)
		args = append(args, criteria.LanguageID)
	}
	b.WriteString(` ORDER BY u.id`)

	query, args, err := sqlx.In(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build translator query: %w", err)
	}

	var out []*domain.User
	if err := sqlx.SelectContext(ctx, p.q, &out, p.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to select translators: %w", err)
	}
	return out, nil
}

func (p *Postgres) NotificationPreferences(ctx context.Context, userID int64) (*domain.NotificationPreferences, error) {
	query := `SELECT not_get_notification, not_get_nighttime FROM users WHERE id = $1`

	var prefs domain.NotificationPreferences
	if err := sqlx.GetContext(ctx, p.q, &prefs, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return &prefs, nil
}

func (p *Postgres) LanguageName(ctx context.Context, id int64) (string, error) {
	var name string
	if err := sqlx.GetContext(ctx, p.q, &name, `SELECT name FROM languages WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrLanguageNotFound
		}
		return "", fmt.Errorf("failed to get language: %w", err)
	}
	return name, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const schema = `
CREATE TABLE IF NOT EXISTS languages (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	translator_type TEXT NOT NULL DEFAULT '',
	translator_level TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	customer_type TEXT NOT NULL DEFAULT '',
	not_get_notification BOOLEAN NOT NULL DEFAULT FALSE,
	not_get_nighttime BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS translator_languages (
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	language_id BIGINT NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, language_id)
);

CREATE TABLE IF NOT EXISTS users_blacklist (
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	translator_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, translator_id)
);

CREATE TABLE IF NOT EXISTS jobs (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	status TEXT NOT NULL,
	due TIMESTAMPTZ NOT NULL,
	from_language_id BIGINT NOT NULL REFERENCES languages(id),
	job_type TEXT NOT NULL,
	certified TEXT NULL,
	gender TEXT NULL,
	immediate BOOLEAN NOT NULL DEFAULT FALSE,
	duration INTEGER NOT NULL,
	session_time TEXT NULL,
	admin_comments TEXT NOT NULL DEFAULT '',
	reference TEXT NOT NULL DEFAULT '',
	user_email TEXT NOT NULL DEFAULT '',
	customer_phone_type BOOLEAN NOT NULL DEFAULT FALSE,
	customer_physical_type BOOLEAN NOT NULL DEFAULT FALSE,
	town TEXT NOT NULL DEFAULT '',
	email_sent BOOLEAN NOT NULL DEFAULT FALSE,
	email_sent_to_partner BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	will_expire_at TIMESTAMPTZ NULL,
	end_at TIMESTAMPTZ NULL,
	withdraw_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_due ON jobs (status, due);

CREATE TABLE IF NOT EXISTS translator_assignments (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	job_id BIGINT NOT NULL REFERENCES jobs(id),
	created_at TIMESTAMPTZ NOT NULL,
	cancel_at TIMESTAMPTZ NULL,
	completed_at TIMESTAMPTZ NULL,
	completed_by BIGINT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_translator_assignments_active
	ON translator_assignments (job_id)
	WHERE cancel_at IS NULL AND completed_at IS NULL;
`
