package domain

import "time"

// JobStatus is the lifecycle state of a booking
type JobStatus string

const (
	StatusPending               JobStatus = "pending"
	StatusAssigned              JobStatus = "assigned"
	StatusStarted               JobStatus = "started"
	StatusCompleted             JobStatus = "completed"
	StatusTimedOut              JobStatus = "timedout"
	StatusWithdrawBefore24      JobStatus = "withdrawbefore24"
	StatusWithdrawAfter24       JobStatus = "withdrawafter24"
	StatusNotCarriedOutCustomer JobStatus = "not_carried_out_customer"
)

// AllStatuses lists every known job status
var AllStatuses = []JobStatus{
	StatusPending,
	StatusAssigned,
	StatusStarted,
	StatusCompleted,
	StatusTimedOut,
	StatusWithdrawBefore24,
	StatusWithdrawAfter24,
	StatusNotCarriedOutCustomer,
}

// Valid reports whether s is one of the known statuses
func (s JobStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the booking is finished and kept only for history and billing
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusWithdrawBefore24, StatusWithdrawAfter24, StatusTimedOut, StatusNotCarriedOutCustomer:
		return true
	}
	return false
}

// JobType decides which pool of translators a booking is offered to
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// Valid reports whether t is one of the known job types
func (t JobType) Valid() bool {
	return t == JobTypePaid || t == JobTypeRWS || t == JobTypeUnpaid
}

// Certification is the translator qualification a customer asked for
type Certification string

const (
	CertifiedYes     Certification = "yes"
	CertifiedBoth    Certification = "both"
	CertifiedLaw     Certification = "law"
	CertifiedNLaw    Certification = "n_law"
	CertifiedHealth  Certification = "health"
	CertifiedNHealth Certification = "n_health"
	CertifiedNormal  Certification = "normal"
)

// Valid reports whether c is one of the known certifications
func (c Certification) Valid() bool {
	switch c {
	case CertifiedYes, CertifiedBoth, CertifiedLaw, CertifiedNLaw, CertifiedHealth, CertifiedNHealth, CertifiedNormal:
		return true
	}
	return false
}

// Gender is the translator gender a customer asked for
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the known genders
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Job is a single interpretation booking
type Job struct {
	ID                   int64          `db:"id" json:"id"`
	UserID               int64          `db:"user_id" json:"user_id"`
	Status               JobStatus      `db:"status" json:"status"`
	Due                  time.Time      `db:"due" json:"due"`
	FromLanguageID       int64          `db:"from_language_id" json:"from_language_id"`
	JobType              JobType        `db:"job_type" json:"job_type"`
	Certified            *Certification `db:"certified" json:"certified,omitempty"`
	Gender               *Gender        `db:"gender" json:"gender,omitempty"`
	Immediate            bool           `db:"immediate" json:"immediate"`
	Duration             int            `db:"duration" json:"duration"`
	SessionTime          *string        `db:"session_time" json:"session_time,omitempty"`
	AdminComments        string         `db:"admin_comments" json:"admin_comments"`
	Reference            string         `db:"reference" json:"reference"`
	UserEmail            string         `db:"user_email" json:"user_email,omitempty"`
	CustomerPhoneType    bool           `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType bool           `db:"customer_physical_type" json:"customer_physical_type"`
	Town                 string         `db:"town" json:"town,omitempty"`
	EmailSent            bool           `db:"email_sent" json:"-"`
	EmailSentToPartner   bool           `db:"email_sent_to_partner" json:"-"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	WillExpireAt         *time.Time     `db:"will_expire_at" json:"will_expire_at,omitempty"`
	EndAt                *time.Time     `db:"end_at" json:"end_at,omitempty"`
	WithdrawAt           *time.Time     `db:"withdraw_at" json:"withdraw_at,omitempty"`
}

// Clone returns a deep copy so callers can mutate without touching the original
func (j *Job) Clone() *Job {
	c := *j
	if j.Certified != nil {
		v := *j.Certified
		c.Certified = &v
	}
	if j.Gender != nil {
		v := *j.Gender
		c.Gender = &v
	}
	if j.SessionTime != nil {
		v := *j.SessionTime
		c.SessionTime = &v
	}
	c.WillExpireAt = cloneTime(j.WillExpireAt)
	c.EndAt = cloneTime(j.EndAt)
	c.WithdrawAt = cloneTime(j.WithdrawAt)
	return &c
}

// Assignment links a job to a translator. A row is never rewritten to point at
// another translator; reassignment stamps CancelAt and appends a new row.
type Assignment struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	JobID       int64      `db:"job_id" json:"job_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CancelAt    *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *int64     `db:"completed_by" json:"completed_by,omitempty"`
}

// Active reports whether the assignment is neither cancelled nor completed
func (a *Assignment) Active() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}

// Clone returns a deep copy of the assignment
func (a *Assignment) Clone() *Assignment {
	c := *a
	c.CancelAt = cloneTime(a.CancelAt)
	c.CompletedAt = cloneTime(a.CompletedAt)
	if a.CompletedBy != nil {
		v := *a.CompletedBy
		c.CompletedBy = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
