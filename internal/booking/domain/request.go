package domain

import "time"

// UpdateRequest is a partial admin update of a booking. A nil field was not
// sent and leaves the stored value untouched.
type UpdateRequest struct {
	Status          *JobStatus
	AdminComments   *string
	SessionTime     *string
	TranslatorID    *int64
	TranslatorEmail *string
	Due             *time.Time
	FromLanguageID  *int64
	Reference       *string
}

// CreateJobRequest carries the fields a customer books with
type CreateJobRequest struct {
	FromLanguageID       int64
	Due                  time.Time
	JobType              JobType
	Certified            *Certification
	Gender               *Gender
	Immediate            bool
	Duration             int
	Reference            string
	UserEmail            string
	CustomerPhoneType    bool
	CustomerPhysicalType bool
	Town                 string
}

// ChangeKind names the field an audit entry describes
type ChangeKind string

const (
	ChangeStatus     ChangeKind = "status"
	ChangeTranslator ChangeKind = "translator"
	ChangeDue        ChangeKind = "due"
	ChangeLanguage   ChangeKind = "language"
)

// LogEntry is one audited change of a booking
type LogEntry struct {
	Kind ChangeKind `json:"kind"`
	Old  string     `json:"old"`
	New  string     `json:"new"`
}

// UpdateResult is returned by an admin update
type UpdateResult struct {
	Updated bool       `json:"updated"`
	Changes []LogEntry `json:"changes"`
}

// Outcome is the user facing result of acceptance and cancellation
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
)

// AcceptResult is the outcome of a translator accepting a booking
type AcceptResult struct {
	Status  Outcome `json:"status"`
	Message string  `json:"message,omitempty"`
	Job     *Job    `json:"job,omitempty"`
}

// CancelResult is the outcome of a customer or translator cancelling a booking
type CancelResult struct {
	Status    Outcome   `json:"status"`
	Message   string    `json:"message,omitempty"`
	JobStatus JobStatus `json:"job_status,omitempty"`
}

// ReopenResult names the booking that is open for acceptance after a reopen
type ReopenResult struct {
	JobID   int64  `json:"job_id"`
	Message string `json:"message"`
}

// JobDetail is a booking with its full translator history
type JobDetail struct {
	Job         *Job          `json:"job"`
	Assignments []*Assignment `json:"assignments"`
}
