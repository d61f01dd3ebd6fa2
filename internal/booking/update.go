package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/transition"
)

// UpdateJob applies an admin update. Translator, due, language and status
// changes are worked out independently and saved together. Every lookup runs
// before the first write, so a miss aborts the request without side effects.
func (s *Service) UpdateJob(ctx context.Context, id int64, req domain.UpdateRequest, actor *domain.User) (*domain.UpdateResult, error) {
	now := s.now()

	job, err := s.store.FindJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", id, err)
	}

	current, err := s.store.ActiveAssignment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment of job %d: %w", id, err)
	}

	change, err := s.tracker.Plan(ctx, current, req)
	if err != nil {
		return nil, err
	}

	updated := job.Clone()
	var changes []domain.LogEntry
	if change.Changed {
		changes = append(changes, change.Log())
	}

	var oldDue time.Time
	dueChanged := req.Due != nil && !req.Due.Equal(job.Due)
	if dueChanged {
		oldDue = job.Due
		updated.Due = *req.Due
		changes = append(changes, domain.LogEntry{
			Kind: domain.ChangeDue,
			Old:  s.formatTime(oldDue),
			New:  s.formatTime(updated.Due),
		})
	}

	var oldLanguage string
	langChanged := req.FromLanguageID != nil && *req.FromLanguageID != job.FromLanguageID
	if langChanged {
		if oldLanguage, err = s.store.LanguageName(ctx, job.FromLanguageID); err != nil {
			return nil, fmt.Errorf("failed to resolve language %d: %w", job.FromLanguageID, err)
		}
		newLanguage, err := s.store.LanguageName(ctx, *req.FromLanguageID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve language %d: %w", *req.FromLanguageID, err)
		}
		updated.FromLanguageID = *req.FromLanguageID
		changes = append(changes, domain.LogEntry{Kind: domain.ChangeLanguage, Old: oldLanguage, New: newLanguage})
	}

	var res transition.Result
	if req.Status != nil {
		res = s.engine.Apply(updated, transition.Request{
			Target:            *req.Status,
			AdminComments:     deref(req.AdminComments),
			SessionTime:       deref(req.SessionTime),
			TranslatorChanged: change.Changed,
			Now:               now,
		})
		if res.StatusChanged {
			changes = append(changes, res.Log())
		} else if res.Reason != nil {
			s.logger.Info("Status change refused",
				slog.Int64("job_id", id),
				slog.String("from", string(res.OldStatus)),
				slog.String("to", string(*req.Status)),
				slog.Any("reason", res.Reason),
			)
		}
	}

	if req.AdminComments != nil {
		updated.AdminComments = *req.AdminComments
	}
	if req.Reference != nil {
		updated.Reference = *req.Reference
	}
	updated.UpdatedAt = now

	p, err := s.loadParties(ctx, updated, current, change.New)
	if err != nil {
		return nil, err
	}

	for _, e := range res.EffectsIn(transition.BeforePersist) {
		s.runEffect(ctx, p, e)
	}

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		if _, err := s.tracker.Apply(ctx, tx, id, change, now); err != nil {
			return err
		}
		return tx.UpdateJob(ctx, updated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save job %d: %w", id, err)
	}

	s.logger.Info("Booking updated",
		slog.Int64("actor_id", actor.ID),
		slog.String("actor_name", actor.Name),
		slog.Int64("job_id", id),
		slog.Any("changes", changes),
	)
	s.publish(domain.EventBookingUpdated, updated, actor.ID, changes)

	for _, e := range res.EffectsIn(transition.AfterPersist) {
		s.runEffect(ctx, p, e)
	}

	result := &domain.UpdateResult{Updated: true, Changes: changes}

	// Bookings that already took place are saved silently.
	if !updated.Due.After(now) {
		return result, nil
	}

	if dueChanged {
		s.notifyDueChanged(ctx, p, oldDue)
	}
	if change.Changed {
		s.notifyTranslatorChanged(ctx, p, change.Old)
	}
	if langChanged {
		s.notifyLanguageChanged(ctx, p, oldLanguage)
	}

	return result, nil
}

// loadParties resolves the customer and the translator holding the job after
// the update
func (s *Service) loadParties(ctx context.Context, job *domain.Job, current *domain.Assignment, assigned *domain.User) (*parties, error) {
	customer, err := s.store.FindUser(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}

	p := &parties{job: job, customer: customer, translator: assigned}
	if p.translator == nil && current != nil {
		if p.translator, err = s.store.FindUser(ctx, current.UserID); err != nil {
			return nil, fmt.Errorf("failed to load translator %d: %w", current.UserID, err)
		}
	}

	p.language = s.languageLabel(ctx, job.FromLanguageID)
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
