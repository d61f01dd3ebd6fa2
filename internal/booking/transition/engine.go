package transition

import (
	"fmt"
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// EffectKind names a notification the workflow must send after a transition
type EffectKind string

const (
	// EffectCustomerReopened mails the customer that a timed out booking is open again
	EffectCustomerReopened EffectKind = "customer_reopened"
	// EffectBroadcastTranslators pushes the booking to every eligible translator
	EffectBroadcastTranslators EffectKind = "broadcast_translators"
	// EffectCustomerAccepted mails the customer that a translator took the booking
	EffectCustomerAccepted EffectKind = "customer_accepted"
	// EffectTranslatorAssigned mails the newly assigned translator
	EffectTranslatorAssigned EffectKind = "translator_assigned"
	// EffectSessionReminders pushes session start reminders to customer and translator
	EffectSessionReminders EffectKind = "session_reminders"
	// EffectSessionEnded mails the invoice and payroll summary
	EffectSessionEnded EffectKind = "session_ended"
	// EffectAdminCancelled mails the customer that an admin cancelled the booking
	EffectAdminCancelled EffectKind = "admin_cancelled"
	// EffectCancellationNotices tells customer and translator about a withdrawal
	EffectCancellationNotices EffectKind = "cancellation_notices"
)

// Phase orders an effect relative to the save of the job
type Phase int

const (
	AfterPersist Phase = iota
	BeforePersist
)

func (p Phase) String() string {
	if p == BeforePersist {
		return "before_persist"
	}
	return "after_persist"
}

// Effect is a side effect instruction returned to the workflow
type Effect struct {
	Kind  EffectKind
	Phase Phase
	// SessionTimeText is set for EffectSessionEnded
	SessionTimeText string
}

// Request is a status change asked for by an admin
type Request struct {
	Target            domain.JobStatus
	AdminComments     string
	SessionTime       string
	TranslatorChanged bool
	Now               time.Time
}

// Result reports what the engine decided
type Result struct {
	StatusChanged bool
	OldStatus     domain.JobStatus
	NewStatus     domain.JobStatus
	// Reason is set when the request was refused; the job is untouched then
	Reason  error
	Effects []Effect
}

// Log returns the audit entry of a successful transition
func (r Result) Log() domain.LogEntry {
	return domain.LogEntry{
		Kind: domain.ChangeStatus,
		Old:  string(r.OldStatus),
		New:  string(r.NewStatus),
	}
}

// EffectsIn returns the effects scheduled for the given phase
func (r Result) EffectsIn(phase Phase) []Effect {
	var out []Effect
	for _, e := range r.Effects {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

type guardFunc func(job *domain.Job, req Request) error

type applyFunc func(job *domain.Job, req Request) []Effect

type rule struct {
	guard guardFunc
	apply applyFunc
}

// Engine decides status changes. It performs no I/O.
type Engine struct {
	table map[domain.JobStatus]map[domain.JobStatus]rule
}

// NewEngine creates an engine with the booking transition table
func NewEngine() *Engine {
	return &Engine{table: defaultTable()}
}

// Apply validates req against the current status of job and, when allowed,
// mutates job in place. A refused request leaves job unchanged.
func (e *Engine) Apply(job *domain.Job, req Request) Result {
	res := Result{OldStatus: job.Status, NewStatus: job.Status}

	if req.Target == job.Status {
		return res
	}

	if !req.Target.Valid() {
		res.Reason = fmt.Errorf("%w: unknown status %q", domain.ErrTransitionNotAllowed, req.Target)
		return res
	}

	r, ok := e.table[job.Status][req.Target]
	if !ok {
		res.Reason = fmt.Errorf("%w: %s -> %s", domain.ErrTransitionNotAllowed, job.Status, req.Target)
		return res
	}

	if job.Status == domain.StatusPending && job.Due.IsZero() {
		res.Reason = domain.Rejected("booking has no valid due time")
		return res
	}

	if r.guard != nil {
		if err := r.guard(job, req); err != nil {
			res.Reason = err
			return res
		}
	}

	job.Status = req.Target
	if r.apply != nil {
		res.Effects = r.apply(job, req)
	}

	res.StatusChanged = true
	res.NewStatus = req.Target
	return res
}

// Allowed reports whether the table has an edge from one status to another
func (e *Engine) Allowed(from, to domain.JobStatus) bool {
	_, ok := e.table[from][to]
	return ok
}

// Targets lists the statuses reachable from a status
func (e *Engine) Targets(from domain.JobStatus) []domain.JobStatus {
	var out []domain.JobStatus
	for _, s := range domain.AllStatuses {
		if e.Allowed(from, s) {
			out = append(out, s)
		}
	}
	return out
}
