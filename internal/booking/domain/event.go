package domain

import "time"

// EventType names a persisted booking change
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingUpdated   EventType = "booking.updated"
	EventBookingAccepted  EventType = "booking.accepted"
	EventBookingCancelled EventType = "booking.cancelled"
	EventSessionEnded     EventType = "booking.session_ended"
	EventCustomerNoShow   EventType = "booking.customer_not_call"
	EventBookingReopened  EventType = "booking.reopened"
)

// BookingEvent is published after a booking change has been saved
type BookingEvent struct {
	Type    EventType  `json:"type"`
	JobID   int64      `json:"job_id"`
	ActorID int64      `json:"actor_id,omitempty"`
	Status  JobStatus  `json:"status"`
	Changes []LogEntry `json:"changes,omitempty"`
	At      time.Time  `json:"at"`
}
