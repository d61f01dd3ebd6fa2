package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/schedule"
)

const (
	cancellationWindow = 24 * time.Hour
	immediateLeadTime  = 5 * time.Minute
)

const lateCancellationMessage = "Du kan inte avboka en bokning som sker inom 24 timmar genom DigitalTolk. Vänligen ring på +46 73 75 86 865 och gör din avbokning over telefon. Tack!"

// StoreJob creates a pending booking for a customer and offers it to the
// eligible translators. Immediate bookings are also mailed to the admin.
func (s *Service) StoreJob(ctx context.Context, customer *domain.User, req domain.CreateJobRequest) (*domain.Job, error) {
	now := s.now()

	if req.Immediate && req.Due.IsZero() {
		req.Due = now.Add(immediateLeadTime)
	}
	if err := validateCreate(req, now); err != nil {
		return nil, err
	}

	language, err := s.store.LanguageName(ctx, req.FromLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve language %d: %w", req.FromLanguageID, err)
	}

	expire := schedule.WillExpireAt(req.Due, now)
	job := &domain.Job{
		UserID:               customer.ID,
		Status:               domain.StatusPending,
		Due:                  req.Due,
		FromLanguageID:       req.FromLanguageID,
		JobType:              req.JobType,
		Certified:            req.Certified,
		Gender:               req.Gender,
		Immediate:            req.Immediate,
		Duration:             req.Duration,
		Reference:            req.Reference,
		UserEmail:            req.UserEmail,
		CustomerPhoneType:    req.CustomerPhoneType,
		CustomerPhysicalType: req.CustomerPhysicalType,
		Town:                 req.Town,
		CreatedAt:            now,
		UpdatedAt:            now,
		WillExpireAt:         &expire,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Booking created",
		slog.Int64("job_id", job.ID),
		slog.Int64("customer_id", customer.ID),
		slog.Bool("immediate", job.Immediate),
	)
	s.publish(domain.EventBookingCreated, job, customer.ID, nil)

	if job.Immediate && s.opts.AdminEmail != "" {
		p := &parties{job: job, customer: customer, language: language}
		subject := fmt.Sprintf("Ny akut bokning av %stolk #%d", language, job.ID)
		err := s.notifier.SendEmail(ctx, s.opts.AdminEmail, "Admin", subject, "emails.new-immediate-job-admin", s.mailData(p, customer, nil))
		s.delivered(err, "emails.new-immediate-job-admin", job.ID)
	}

	s.broadcast(ctx, job, customer, 0)

	return job, nil
}

func validateCreate(req domain.CreateJobRequest, now time.Time) error {
	switch {
	case req.FromLanguageID <= 0:
		return fmt.Errorf("%w: from_language_id is required", domain.ErrInvalidRequest)
	case req.Due.IsZero():
		return fmt.Errorf("%w: due is required", domain.ErrInvalidRequest)
	case !req.Due.After(now):
		return fmt.Errorf("%w: due must be in the future", domain.ErrInvalidRequest)
	case req.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", domain.ErrInvalidRequest)
	case !req.JobType.Valid():
		return fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidRequest, req.JobType)
	case req.Certified != nil && !req.Certified.Valid():
		return fmt.Errorf("%w: unknown certification %q", domain.ErrInvalidRequest, *req.Certified)
	case req.Gender != nil && !req.Gender.Valid():
		return fmt.Errorf("%w: unknown gender %q", domain.ErrInvalidRequest, *req.Gender)
	}
	return nil
}

// CancelJob withdraws a booking on behalf of its customer, or hands it back to
// the pool on behalf of its translator
func (s *Service) CancelJob(ctx context.Context, jobID int64, actor *domain.User) (*domain.CancelResult, error) {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	active, err := s.store.ActiveAssignment(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment of job %d: %w", jobID, err)
	}

	switch actor.Role {
	case domain.RoleCustomer:
		return s.withdraw(ctx, job, active, actor)
	case domain.RoleTranslator:
		return s.handBack(ctx, job, active, actor)
	}
	return nil, fmt.Errorf("%w: role %q cannot cancel bookings", domain.ErrInvalidRequest, actor.Role)
}

// withdraw cancels the booking for the customer. Cancelling 24 hours or more
// ahead is withdrawbefore24, later is withdrawafter24.
func (s *Service) withdraw(ctx context.Context, job *domain.Job, active *domain.Assignment, customer *domain.User) (*domain.CancelResult, error) {
	if job.UserID != customer.ID {
		return nil, fmt.Errorf("%w: job %d belongs to another customer", domain.ErrInvalidRequest, job.ID)
	}
	if job.Status != domain.StatusPending && job.Status != domain.StatusAssigned {
		return nil, fmt.Errorf("%w: cannot withdraw a %s booking", domain.ErrTransitionNotAllowed, job.Status)
	}

	var translator *domain.User
	if active != nil {
		var err error
		if translator, err = s.store.FindUser(ctx, active.UserID); err != nil {
			return nil, fmt.Errorf("failed to load translator %d: %w", active.UserID, err)
		}
	}

	now := s.now()
	updated := job.Clone()
	updated.WithdrawAt = &now
	updated.UpdatedAt = now
	updated.Status = domain.StatusWithdrawAfter24
	if job.Due.Sub(now) >= cancellationWindow {
		updated.Status = domain.StatusWithdrawBefore24
	}

	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.UpdateJob(ctx, updated); err != nil {
			return err
		}
		if active != nil {
			return tx.CancelAssignment(ctx, active.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw job %d: %w", job.ID, err)
	}

	s.logger.Info("Booking withdrawn by customer",
		slog.Int64("job_id", job.ID),
		slog.String("status", string(updated.Status)),
	)
	s.publish(domain.EventBookingCancelled, updated, customer.ID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(job.Status), New: string(updated.Status)},
	})

	if translator != nil {
		text := fmt.Sprintf("Kunden har avbokat bokningen för %stolk, %dmin, %s. Var god och kolla dina tidigare bokningar för detaljer.",
			s.languageLabel(ctx, job.FromLanguageID), job.Duration, s.formatTime(job.Due))
		s.push(ctx, translator, job.ID, map[string]any{"notification_type": pushJobCancelled}, text)
	}

	return &domain.CancelResult{Status: domain.OutcomeSuccess, JobStatus: updated.Status}, nil
}

// handBack returns the booking to pending when its translator drops it more
// than 24 hours ahead. Closer to the due time it has to be done by phone.
func (s *Service) handBack(ctx context.Context, job *domain.Job, active *domain.Assignment, translator *domain.User) (*domain.CancelResult, error) {
	if active == nil || active.UserID != translator.ID {
		return nil, fmt.Errorf("%w: job %d", domain.ErrNotAssigned, job.ID)
	}
	if job.Status != domain.StatusAssigned {
		return nil, fmt.Errorf("%w: cannot hand back a %s booking", domain.ErrTransitionNotAllowed, job.Status)
	}

	now := s.now()
	if job.Due.Sub(now) <= cancellationWindow {
		return &domain.CancelResult{Status: domain.OutcomeFail, Message: lateCancellationMessage}, nil
	}

	customer, err := s.store.FindUser(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}

	expire := schedule.WillExpireAt(job.Due, now)
	updated := job.Clone()
	updated.Status = domain.StatusPending
	updated.CreatedAt = now
	updated.UpdatedAt = now
	updated.WillExpireAt = &expire

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.CancelAssignment(ctx, active.ID, now); err != nil {
			return err
		}
		return tx.UpdateJob(ctx, updated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reopen job %d: %w", job.ID, err)
	}

	s.logger.Info("Booking handed back by translator",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translator.ID),
	)
	s.publish(domain.EventBookingCancelled, updated, translator.ID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(job.Status), New: string(updated.Status)},
		{Kind: domain.ChangeTranslator, Old: translator.Email},
	})

	text := fmt.Sprintf("Er %stolk, %dmin %s, har avbokat tolkningen. Vi letar nu efter en ny tolk som kan ersätta denne. Tack.",
		s.languageLabel(ctx, job.FromLanguageID), job.Duration, s.formatTime(job.Due))
	s.push(ctx, customer, job.ID, map[string]any{"notification_type": pushJobCancelled}, text)

	s.broadcast(ctx, updated, customer, translator.ID)

	return &domain.CancelResult{Status: domain.OutcomeSuccess, JobStatus: updated.Status}, nil
}

// EndJob completes a started session. Calling it again once the booking left
// started does nothing.
func (s *Service) EndJob(ctx context.Context, jobID, userID int64) error {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	if job.Status != domain.StatusStarted {
		return nil
	}

	active, err := s.store.ActiveAssignment(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load assignment of job %d: %w", jobID, err)
	}
	if active == nil {
		return fmt.Errorf("%w: started job %d has no translator", domain.ErrAssignmentNotFound, jobID)
	}

	p, err := s.loadParties(ctx, job, active, nil)
	if err != nil {
		return err
	}

	now := s.now()
	elapsed := now.Sub(job.Due)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	session := schedule.FormatSessionTime(elapsed)

	updated := job.Clone()
	updated.Status = domain.StatusCompleted
	updated.SessionTime = &session
	updated.EndAt = &now
	updated.UpdatedAt = now

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.UpdateJob(ctx, updated); err != nil {
			return err
		}
		return tx.CompleteAssignment(ctx, active.ID, now, userID)
	})
	if err != nil {
		return fmt.Errorf("failed to end job %d: %w", jobID, err)
	}

	s.logger.Info("Session ended",
		slog.Int64("job_id", jobID),
		slog.Int64("user_id", userID),
		slog.String("session_time", session),
	)
	s.publish(domain.EventSessionEnded, updated, userID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(job.Status), New: string(updated.Status)},
	})

	p.job = updated
	s.notifySessionEnded(ctx, p, schedule.SessionTimeText(elapsed))

	return nil
}

// CustomerNotCall records that the customer never showed up. The session is
// closed on behalf of the translator.
func (s *Service) CustomerNotCall(ctx context.Context, jobID int64) error {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	if job.Status != domain.StatusAssigned && job.Status != domain.StatusStarted {
		return fmt.Errorf("%w: %s -> %s", domain.ErrTransitionNotAllowed, job.Status, domain.StatusNotCarriedOutCustomer)
	}

	active, err := s.store.ActiveAssignment(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load assignment of job %d: %w", jobID, err)
	}
	if active == nil {
		return fmt.Errorf("%w: job %d has no translator", domain.ErrAssignmentNotFound, jobID)
	}

	now := s.now()
	updated := job.Clone()
	updated.Status = domain.StatusNotCarriedOutCustomer
	updated.EndAt = &now
	updated.UpdatedAt = now

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.UpdateJob(ctx, updated); err != nil {
			return err
		}
		return tx.CompleteAssignment(ctx, active.ID, now, active.UserID)
	})
	if err != nil {
		return fmt.Errorf("failed to close job %d: %w", jobID, err)
	}

	s.logger.Info("Customer did not show up", slog.Int64("job_id", jobID))
	s.publish(domain.EventCustomerNoShow, updated, active.UserID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(job.Status), New: string(updated.Status)},
	})

	return nil
}

// Reopen puts a booking back up for acceptance. A timed out booking is kept
// for history and copied into a new pending booking; any other booking is
// reset in place. The current translator is released either way.
func (s *Service) Reopen(ctx context.Context, jobID, actorID int64) (*domain.ReopenResult, error) {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	now := s.now()
	expire := schedule.WillExpireAt(job.Due, now)

	reopened := job.Clone()
	reopened.Status = domain.StatusPending
	reopened.CreatedAt = now
	reopened.UpdatedAt = now
	reopened.WillExpireAt = &expire

	copied := job.Status == domain.StatusTimedOut
	if copied {
		reopened.ID = 0
		reopened.AdminComments = fmt.Sprintf("This booking is a reopening of booking #%d", job.ID)
		reopened.EmailSent = false
		reopened.EmailSentToPartner = false
		reopened.SessionTime = nil
		reopened.EndAt = nil
		reopened.WithdrawAt = nil
	}

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		if copied {
			if err := tx.CreateJob(ctx, reopened); err != nil {
				return err
			}
		} else if err := tx.UpdateJob(ctx, reopened); err != nil {
			return err
		}

		if err := tx.CancelActiveAssignments(ctx, job.ID, now); err != nil {
			return err
		}
		cancelled := now
		return tx.CreateAssignment(ctx, &domain.Assignment{
			UserID:    actorID,
			JobID:     job.ID,
			CreatedAt: now,
			CancelAt:  &cancelled,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reopen job %d: %w", jobID, err)
	}

	s.logger.Info("Booking reopened",
		slog.Int64("job_id", job.ID),
		slog.Int64("reopened_job_id", reopened.ID),
		slog.Int64("actor_id", actorID),
	)
	s.publish(domain.EventBookingReopened, reopened, actorID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(job.Status), New: string(reopened.Status)},
	})

	customer, err := s.store.FindUser(ctx, job.UserID)
	if err != nil {
		s.logger.Error("Failed to load customer", slog.Int64("job_id", job.ID), slog.Any("error", err))
	}
	s.broadcast(ctx, reopened, customer, 0)

	return &domain.ReopenResult{JobID: reopened.ID, Message: "Tolk cancelled!"}, nil
}

// ResendNotifications offers the booking to eligible translators again
func (s *Service) ResendNotifications(ctx context.Context, jobID int64) error {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	customer, err := s.store.FindUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}

	s.broadcast(ctx, job, customer, 0)
	return nil
}

// ResendSMSNotifications texts the booking to eligible translators and
// returns how many messages were queued
func (s *Service) ResendSMSNotifications(ctx context.Context, jobID int64) (int, error) {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	return s.smsTranslators(ctx, job), nil
}
