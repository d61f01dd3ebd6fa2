package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/transition"
)

// Push notification types understood by the apps
const (
	pushNewBooking      = "suitable_job"
	pushJobAccepted     = "job_accepted"
	pushJobCancelled    = "job_cancelled"
	pushSessionReminder = "session_start_remind"
)

// parties are the people a booking notification can go to
type parties struct {
	job        *domain.Job
	customer   *domain.User
	translator *domain.User
	language   string
}

func (s *Service) runEffect(ctx context.Context, p *parties, e transition.Effect) {
	id := p.job.ID

	switch e.Kind {
	case transition.EffectCustomerReopened:
		subject := fmt.Sprintf("Vi har nu återöppnat er bokning av %stolk för bokning #%d", p.language, id)
		s.emailCustomer(ctx, p, subject, "emails.job-change-status-to-customer", nil)
	case transition.EffectBroadcastTranslators:
		s.broadcast(ctx, p.job, p.customer, 0)
	case transition.EffectCustomerAccepted:
		s.emailCustomer(ctx, p, acceptedSubject(id), "emails.job-accepted", nil)
	case transition.EffectTranslatorAssigned:
		s.emailTranslator(ctx, p, p.translator, acceptedSubject(id), "emails.job-changed-translator-new-translator", nil)
	case transition.EffectSessionReminders:
		s.remindSession(ctx, p, p.customer)
		s.remindSession(ctx, p, p.translator)
	case transition.EffectSessionEnded:
		s.notifySessionEnded(ctx, p, e.SessionTimeText)
	case transition.EffectAdminCancelled:
		subject := fmt.Sprintf("Avbokning av bokningsnr: #%d", id)
		s.emailCustomer(ctx, p, subject, "emails.status-changed-from-pending-or-assigned-customer", nil)
	case transition.EffectCancellationNotices:
		subject := fmt.Sprintf("Avbokning av bokningsnr: #%d", id)
		s.emailCustomer(ctx, p, subject, "emails.job-cancelled-customer", nil)
		s.emailTranslator(ctx, p, p.translator, subject, "emails.job-cancelled-translator", nil)
	default:
		s.logger.Warn("Unknown transition effect",
			slog.String("effect", string(e.Kind)),
			slog.Int64("job_id", id),
		)
	}
}

func acceptedSubject(jobID int64) string {
	return fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", jobID)
}

func (s *Service) notifyDueChanged(ctx context.Context, p *parties, oldDue time.Time) {
	subject := fmt.Sprintf("Meddelande om ändring av tolkbokning för uppdrag #%d", p.job.ID)
	extra := map[string]any{"old_time": s.formatTime(oldDue)}

	s.emailCustomer(ctx, p, subject, "emails.job-changed-date", extra)
	s.emailTranslator(ctx, p, p.translator, subject, "emails.job-changed-date", extra)
}

func (s *Service) notifyTranslatorChanged(ctx context.Context, p *parties, previous *domain.User) {
	subject := fmt.Sprintf("Meddelande om tilldelning av tolkuppdrag för uppdrag #%d", p.job.ID)

	s.emailCustomer(ctx, p, subject, "emails.job-changed-translator-customer", nil)
	if previous != nil {
		s.emailTranslator(ctx, p, previous, subject, "emails.job-changed-translator-old-translator", nil)
	}
	s.emailTranslator(ctx, p, p.translator, subject, "emails.job-changed-translator-new-translator", nil)
}

func (s *Service) notifyLanguageChanged(ctx context.Context, p *parties, oldLanguage string) {
	subject := fmt.Sprintf("Meddelande om ändring av tolkbokning för uppdrag #%d", p.job.ID)
	extra := map[string]any{"old_lang": oldLanguage}

	s.emailCustomer(ctx, p, subject, "emails.job-changed-lang", extra)
	s.emailTranslator(ctx, p, p.translator, subject, "emails.job-changed-lang", extra)
}

func (s *Service) notifySessionEnded(ctx context.Context, p *parties, sessionText string) {
	subject := fmt.Sprintf("Information om avslutad tolkning för bokningsnummer #%d", p.job.ID)

	s.emailCustomer(ctx, p, subject, "emails.session-ended", map[string]any{
		"session_time": sessionText,
		"for_text":     "faktura",
	})
	s.emailTranslator(ctx, p, p.translator, subject, "emails.session-ended", map[string]any{
		"session_time": sessionText,
		"for_text":     "lön",
	})
}

func (s *Service) remindSession(ctx context.Context, p *parties, user *domain.User) {
	if user == nil {
		return
	}

	due := p.job.Due.In(s.opts.Location)
	place := "telefon"
	if p.job.CustomerPhysicalType {
		place = "på plats i " + p.job.Town
	}
	text := fmt.Sprintf("Detta är en påminnelse om att du har en %stolkning (%s) kl %s på %s som varar i %d min. Lycka till och kom ihåg att ge feedback efter utförd tolkning!",
		p.language, place, due.Format("15:04"), due.Format("2006-01-02"), p.job.Duration)

	s.push(ctx, user, p.job.ID, map[string]any{"notification_type": pushSessionReminder}, text)
}

// emailCustomer mails the customer, preferring the contact address stored on
// the booking
func (s *Service) emailCustomer(ctx context.Context, p *parties, subject, template string, extra map[string]any) {
	if p.customer == nil {
		return
	}
	to := p.customer.Email
	if p.job.UserEmail != "" {
		to = p.job.UserEmail
	}
	err := s.notifier.SendEmail(ctx, to, p.customer.Name, subject, template, s.mailData(p, p.customer, extra))
	s.delivered(err, template, p.job.ID)
}

func (s *Service) emailTranslator(ctx context.Context, p *parties, translator *domain.User, subject, template string, extra map[string]any) {
	if translator == nil {
		s.logger.Warn("No translator to notify",
			slog.Int64("job_id", p.job.ID),
			slog.String("template", template),
		)
		return
	}
	err := s.notifier.SendEmail(ctx, translator.Email, translator.Name, subject, template, s.mailData(p, translator, extra))
	s.delivered(err, template, p.job.ID)
}

func (s *Service) mailData(p *parties, recipient *domain.User, extra map[string]any) map[string]any {
	data := map[string]any{
		"user_name": recipient.Name,
		"job_id":    p.job.ID,
		"language":  p.language,
		"due":       s.formatTime(p.job.Due),
		"duration":  p.job.Duration,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// push sends a push to one user if their preferences allow it
func (s *Service) push(ctx context.Context, user *domain.User, jobID int64, data map[string]any, text string) {
	if !s.notifier.NeedsPush(ctx, user.ID) {
		return
	}
	delayed := s.notifier.NeedsDelayedPush(ctx, user.ID)
	err := s.notifier.SendPush(ctx, []*domain.User{user}, jobID, data, text, delayed)
	s.delivered(err, fmt.Sprint(data["notification_type"]), jobID)
}

// broadcast offers a booking to every eligible translator. Translators who do
// not want pushes at night get theirs in the morning.
func (s *Service) broadcast(ctx context.Context, job *domain.Job, customer *domain.User, exclude int64) {
	translators, err := s.store.PotentialTranslators(ctx, criteriaFor(job, exclude))
	if err != nil {
		s.logger.Error("Failed to load potential translators",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
		return
	}

	var now, later []*domain.User
	for _, t := range translators {
		if !s.notifier.NeedsPush(ctx, t.ID) {
			continue
		}
		if s.notifier.NeedsDelayedPush(ctx, t.ID) {
			later = append(later, t)
		} else {
			now = append(now, t)
		}
	}

	language := s.languageLabel(ctx, job.FromLanguageID)
	text := fmt.Sprintf("Ny bokning för %stolk %dmin %s", language, job.Duration, s.formatTime(job.Due))
	data := s.jobPayload(job, customer)
	data["notification_type"] = pushNewBooking

	s.delivered(s.notifier.SendPush(ctx, now, job.ID, data, text, false), pushNewBooking, job.ID)
	s.delivered(s.notifier.SendPush(ctx, later, job.ID, data, text, true), pushNewBooking, job.ID)

	s.logger.Info("Booking offered to translators",
		slog.Int64("job_id", job.ID),
		slog.Int("immediate", len(now)),
		slog.Int("delayed", len(later)),
	)
}

// smsTranslators texts every eligible translator that has a phone number
func (s *Service) smsTranslators(ctx context.Context, job *domain.Job) int {
	translators, err := s.store.PotentialTranslators(ctx, criteriaFor(job, 0))
	if err != nil {
		s.logger.Error("Failed to load potential translators",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
		return 0
	}

	due := job.Due.In(s.opts.Location)
	language := s.languageLabel(ctx, job.FromLanguageID)
	var text string
	if job.CustomerPhysicalType {
		text = fmt.Sprintf("Bokningsinfo: %stolkning på plats i %s kl %s den %s, %d min. Logga in i appen för att acceptera.",
			language, job.Town, due.Format("15:04"), due.Format("2006-01-02"), job.Duration)
	} else {
		text = fmt.Sprintf("Bokningsinfo: %stolkning per telefon kl %s den %s, %d min. Logga in i appen för att acceptera.",
			language, due.Format("15:04"), due.Format("2006-01-02"), job.Duration)
	}

	sent := 0
	for _, t := range translators {
		phone := t.Mobile
		if phone == "" {
			phone = t.Phone
		}
		if phone == "" {
			continue
		}
		if err := s.notifier.SendSMS(ctx, phone, text); err != nil {
			s.delivered(err, "sms", job.ID)
			continue
		}
		sent++
	}
	return sent
}

// jobPayload is the booking summary attached to translator pushes
func (s *Service) jobPayload(job *domain.Job, customer *domain.User) map[string]any {
	due := job.Due.In(s.opts.Location)
	data := map[string]any{
		"job_id":                 job.ID,
		"from_language_id":       job.FromLanguageID,
		"immediate":              job.Immediate,
		"duration":               job.Duration,
		"status":                 job.Status,
		"due":                    s.formatTime(job.Due),
		"due_date":               due.Format("2006-01-02"),
		"due_time":               due.Format("15:04:05"),
		"job_type":               job.JobType,
		"customer_phone_type":    job.CustomerPhoneType,
		"customer_physical_type": job.CustomerPhysicalType,
	}
	if job.Gender != nil {
		data["gender"] = *job.Gender
	}
	if job.Certified != nil {
		data["certified"] = *job.Certified
	}
	if customer != nil {
		data["customer_town"] = customer.City
		data["customer_type"] = customer.CustomerType
	}
	data["job_for"] = jobFor(job)
	return data
}

func jobFor(job *domain.Job) []string {
	out := []string{}
	if job.Gender != nil {
		switch *job.Gender {
		case domain.GenderMale:
			out = append(out, "Man")
		case domain.GenderFemale:
			out = append(out, "Kvinna")
		}
	}
	if job.Certified != nil {
		switch *job.Certified {
		case domain.CertifiedBoth:
			out = append(out, "normal", "certified")
		case domain.CertifiedYes:
			out = append(out, "certified")
		default:
			out = append(out, string(*job.Certified))
		}
	}
	return out
}

// languageLabel returns the language name for message texts. A missing
// language leaves the name out rather than failing the notification.
func (s *Service) languageLabel(ctx context.Context, id int64) string {
	name, err := s.store.LanguageName(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to resolve language",
			slog.Int64("language_id", id),
			slog.Any("error", err),
		)
		return ""
	}
	return name
}
