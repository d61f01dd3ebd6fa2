package transition

import (
	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/schedule"
)

func defaultTable() map[domain.JobStatus]map[domain.JobStatus]rule {
	commented := rule{guard: requireComment}

	return map[domain.JobStatus]map[domain.JobStatus]rule{
		domain.StatusTimedOut: {
			domain.StatusPending: {
				guard: notPastDue,
				apply: reopenTimedOut,
			},
			domain.StatusAssigned: {
				guard: all(notPastDue, requireTranslatorChange),
				apply: emit(EffectCustomerAccepted),
			},
		},
		domain.StatusCompleted: {
			domain.StatusWithdrawBefore24: commented,
			domain.StatusWithdrawAfter24:  commented,
			domain.StatusTimedOut:         commented,
		},
		domain.StatusStarted: {
			domain.StatusWithdrawBefore24: commented,
			domain.StatusWithdrawAfter24:  commented,
			domain.StatusTimedOut:         commented,
			domain.StatusCompleted: {
				guard: all(requireComment, requireSessionTime),
				apply: completeSession,
			},
		},
		domain.StatusPending: {
			domain.StatusWithdrawBefore24: {guard: requireComment, apply: emit(EffectAdminCancelled)},
			domain.StatusWithdrawAfter24:  {guard: requireComment, apply: emit(EffectAdminCancelled)},
			domain.StatusTimedOut:         {guard: requireComment, apply: emit(EffectAdminCancelled)},
			domain.StatusAssigned:         {guard: requireComment, apply: assignFromPending},
		},
		domain.StatusWithdrawAfter24: {
			domain.StatusTimedOut: commented,
		},
		domain.StatusAssigned: {
			domain.StatusWithdrawBefore24: {apply: emitBefore(EffectCancellationNotices)},
			domain.StatusWithdrawAfter24:  {apply: emitBefore(EffectCancellationNotices)},
			domain.StatusTimedOut:         {guard: requireComment},
		},
		domain.StatusWithdrawBefore24:      {},
		domain.StatusNotCarriedOutCustomer: {},
	}
}

func all(guards ...guardFunc) guardFunc {
	return func(job *domain.Job, req Request) error {
		for _, g := range guards {
			if err := g(job, req); err != nil {
				return err
			}
		}
		return nil
	}
}

// requireComment rejects an empty admin comment. Only the exact empty string
// is refused.
func requireComment(_ *domain.Job, req Request) error {
	if req.AdminComments == "" {
		return domain.Rejected("admin comment is required")
	}
	return nil
}

func notPastDue(job *domain.Job, req Request) error {
	if req.Now.After(job.Due) {
		return domain.Rejected("booking due time has passed")
	}
	return nil
}

func requireTranslatorChange(_ *domain.Job, req Request) error {
	if !req.TranslatorChanged {
		return domain.Rejected("a new translator must be assigned")
	}
	return nil
}

func requireSessionTime(_ *domain.Job, req Request) error {
	if req.SessionTime == "" {
		return domain.Rejected("session time is required")
	}
	if _, err := schedule.ParseSessionTime(req.SessionTime); err != nil {
		return domain.Rejected(err.Error())
	}
	return nil
}

func emit(kinds ...EffectKind) applyFunc {
	return func(*domain.Job, Request) []Effect {
		out := make([]Effect, 0, len(kinds))
		for _, k := range kinds {
			out = append(out, Effect{Kind: k, Phase: AfterPersist})
		}
		return out
	}
}

func emitBefore(kind EffectKind) applyFunc {
	return func(*domain.Job, Request) []Effect {
		return []Effect{{Kind: kind, Phase: BeforePersist}}
	}
}

func reopenTimedOut(job *domain.Job, req Request) []Effect {
	job.CreatedAt = req.Now
	job.EmailSent = false
	job.EmailSentToPartner = false
	expires := schedule.WillExpireAt(job.Due, req.Now)
	job.WillExpireAt = &expires

	return []Effect{
		{Kind: EffectCustomerReopened, Phase: AfterPersist},
		{Kind: EffectBroadcastTranslators, Phase: AfterPersist},
	}
}

func completeSession(job *domain.Job, req Request) []Effect {
	// guarded by requireSessionTime
	d, _ := schedule.ParseSessionTime(req.SessionTime)
	formatted := schedule.FormatSessionTime(d)
	end := req.Now

	job.SessionTime = &formatted
	job.EndAt = &end

	return []Effect{{
		Kind:            EffectSessionEnded,
		Phase:           AfterPersist,
		SessionTimeText: schedule.SessionTimeText(d),
	}}
}

func assignFromPending(_ *domain.Job, req Request) []Effect {
	if !req.TranslatorChanged {
		return emit(EffectAdminCancelled)(nil, req)
	}
	return emit(EffectCustomerAccepted, EffectTranslatorAssigned, EffectSessionReminders)(nil, req)
}

