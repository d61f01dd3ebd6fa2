package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// AcceptJob lets a translator take a pending booking. Losing the race against
// another translator, or holding another booking at the same time, is a fail
// result rather than an error.
func (s *Service) AcceptJob(ctx context.Context, jobID int64, translator *domain.User) (*domain.AcceptResult, error) {
	job, res, err := s.accept(ctx, jobID, translator)
	if err != nil || res != nil {
		return res, err
	}

	return &domain.AcceptResult{Status: domain.OutcomeSuccess, Job: job}, nil
}

// AcceptJobWithID is AcceptJob for the app flow: the customer also gets a push
// and the translator a confirmation text
func (s *Service) AcceptJobWithID(ctx context.Context, jobID int64, translator *domain.User) (*domain.AcceptResult, error) {
	job, res, err := s.accept(ctx, jobID, translator)
	if err != nil || res != nil {
		return res, err
	}

	language := s.languageLabel(ctx, job.FromLanguageID)
	due := s.formatTime(job.Due)

	if customer, err := s.store.FindUser(ctx, job.UserID); err != nil {
		s.logger.Error("Failed to load customer", slog.Int64("job_id", job.ID), slog.Any("error", err))
	} else {
		text := fmt.Sprintf("Din bokning för %s translators, %dmin, %s har accepterats av en tolk. Vänligen öppna appen för att se detaljer om tolken.",
			language, job.Duration, due)
		s.push(ctx, customer, job.ID, map[string]any{"notification_type": pushJobAccepted}, text)
	}

	return &domain.AcceptResult{
		Status:  domain.OutcomeSuccess,
		Message: fmt.Sprintf("Du har nu accepterat och fått bokningen för %stolk %dmin %s", language, job.Duration, due),
		Job:     job,
	}, nil
}

// accept runs the shared acceptance steps. A non-nil result is a fail outcome
// to hand back as is.
func (s *Service) accept(ctx context.Context, jobID int64, translator *domain.User) (*domain.Job, *domain.AcceptResult, error) {
	if translator.Role != domain.RoleTranslator {
		return nil, nil, fmt.Errorf("%w: only translators can accept bookings", domain.ErrInvalidRequest)
	}

	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	booked, err := s.store.IsTranslatorBooked(ctx, translator.ID, job.ID, job.Due)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check bookings of translator %d: %w", translator.ID, err)
	}
	if booked {
		return nil, &domain.AcceptResult{
			Status:  domain.OutcomeFail,
			Message: fmt.Sprintf("Du har redan en bokning den tiden %s. Du har inte fått denna tolkning", s.formatTime(job.Due)),
		}, nil
	}

	now := s.now()
	if job.Status != domain.StatusPending {
		return nil, s.alreadyAccepted(ctx, job), nil
	}

	if _, err := s.store.ClaimPendingJob(ctx, job.ID, translator.ID, now); err != nil {
		if errors.Is(err, domain.ErrJobAlreadyAccepted) {
			return nil, s.alreadyAccepted(ctx, job), nil
		}
		return nil, nil, fmt.Errorf("failed to claim job %d: %w", job.ID, err)
	}

	job.Status = domain.StatusAssigned
	job.UpdatedAt = now

	s.logger.Info("Booking accepted",
		slog.Int64("job_id", job.ID),
		slog.Int64("translator_id", translator.ID),
	)
	s.publish(domain.EventBookingAccepted, job, translator.ID, []domain.LogEntry{
		{Kind: domain.ChangeStatus, Old: string(domain.StatusPending), New: string(domain.StatusAssigned)},
		{Kind: domain.ChangeTranslator, New: translator.Email},
	})

	p := &parties{job: job, translator: translator, language: s.languageLabel(ctx, job.FromLanguageID)}
	if p.customer, err = s.store.FindUser(ctx, job.UserID); err != nil {
		s.logger.Error("Failed to load customer", slog.Int64("job_id", job.ID), slog.Any("error", err))
	}
	s.emailCustomer(ctx, p, acceptedSubject(job.ID), "emails.job-accepted", nil)

	return job, nil, nil
}

func (s *Service) alreadyAccepted(ctx context.Context, job *domain.Job) *domain.AcceptResult {
	return &domain.AcceptResult{
		Status: domain.OutcomeFail,
		Message: fmt.Sprintf("Denna %stolkning %dmin %s har redan accepterats av annan tolk. Du har inte fått denna tolkning",
			s.languageLabel(ctx, job.FromLanguageID), job.Duration, s.formatTime(job.Due)),
	}
}
