package dto

import (
	"time"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

type CreateBookingRequest struct {
	FromLanguageID       int64     `json:"from_language_id" binding:"required"`
	Due                  time.Time `json:"due"`
	JobType              string    `json:"job_type" binding:"required"`
	Certified            *string   `json:"certified"`
	Gender               *string   `json:"gender"`
	Immediate            bool      `json:"immediate"`
	Duration             int       `json:"duration" binding:"required"`
	Reference            string    `json:"reference"`
	UserEmail            string    `json:"user_email"`
	CustomerPhoneType    bool      `json:"customer_phone_type"`
	CustomerPhysicalType bool      `json:"customer_physical_type"`
	Town                 string    `json:"town"`
}

// ToDomain converts the body into the workflow request
func (r *CreateBookingRequest) ToDomain() domain.CreateJobRequest {
	req := domain.CreateJobRequest{
		FromLanguageID:       r.FromLanguageID,
		Due:                  r.Due,
		JobType:              domain.JobType(r.JobType),
		Immediate:            r.Immediate,
		Duration:             r.Duration,
		Reference:            r.Reference,
		UserEmail:            r.UserEmail,
		CustomerPhoneType:    r.CustomerPhoneType,
		CustomerPhysicalType: r.CustomerPhysicalType,
		Town:                 r.Town,
	}
	if r.Certified != nil {
		c := domain.Certification(*r.Certified)
		req.Certified = &c
	}
	if r.Gender != nil {
		g := domain.Gender(*r.Gender)
		req.Gender = &g
	}
	return req
}

// UpdateBookingRequest is a partial update; omitted fields stay untouched
type UpdateBookingRequest struct {
	Status          *string    `json:"status"`
	AdminComments   *string    `json:"admin_comments"`
	SessionTime     *string    `json:"session_time"`
	TranslatorID    *int64     `json:"translator_id"`
	TranslatorEmail *string    `json:"translator_email"`
	Due             *time.Time `json:"due"`
	FromLanguageID  *int64     `json:"from_language_id"`
	Reference       *string    `json:"reference"`
}

// ToDomain converts the body into the workflow request
func (r *UpdateBookingRequest) ToDomain() domain.UpdateRequest {
	req := domain.UpdateRequest{
		AdminComments:   r.AdminComments,
		SessionTime:     r.SessionTime,
		TranslatorID:    r.TranslatorID,
		TranslatorEmail: r.TranslatorEmail,
		Due:             r.Due,
		FromLanguageID:  r.FromLanguageID,
		Reference:       r.Reference,
	}
	if r.Status != nil {
		s := domain.JobStatus(*r.Status)
		req.Status = &s
	}
	return req
}

type AcceptBookingRequest struct {
	JobID int64 `json:"job_id" binding:"required"`
}

type StatusResponse struct {
	Status  domain.Outcome `json:"status"`
	Message string         `json:"message,omitempty"`
	Sent    *int           `json:"sent,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
