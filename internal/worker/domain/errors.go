package domain

import "errors"

var (
	// ErrDeliveryAlreadyClaimed is returned when another worker holds the
	// message or it was already delivered
	ErrDeliveryAlreadyClaimed = errors.New("delivery already claimed or delivered")

	// ErrMaxRetriesExceeded is returned when a message has used up its attempts
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
