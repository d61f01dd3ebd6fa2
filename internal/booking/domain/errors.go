package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every lookup miss
	ErrNotFound = errors.New("not found")

	// ErrJobNotFound is returned when a job id does not exist
	ErrJobNotFound = fmt.Errorf("job %w", ErrNotFound)

	// ErrUserNotFound is returned when a user id or email resolves to no user
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrLanguageNotFound is returned when a language id does not exist
	ErrLanguageNotFound = fmt.Errorf("language %w", ErrNotFound)

	// ErrAssignmentNotFound is returned when a job has no assignment to act on
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", ErrNotFound)

	// ErrValidationRejected marks a transition whose precondition failed
	ErrValidationRejected = errors.New("validation rejected")

	// ErrTransitionNotAllowed marks a status change with no edge in the transition table
	ErrTransitionNotAllowed = errors.New("status transition not allowed")

	// ErrAlreadyBooked is returned when a translator already holds a booking at the same time
	ErrAlreadyBooked = errors.New("translator already booked at that time")

	// ErrJobAlreadyAccepted is returned when the job left pending before the claim was written
	ErrJobAlreadyAccepted = errors.New("job already accepted or not in pending status")

	// ErrActiveAssignmentExists is returned when a second active assignment would be created
	ErrActiveAssignmentExists = errors.New("job already has an active assignment")

	// ErrNotAssigned is returned when a translator acts on a job they do not hold
	ErrNotAssigned = errors.New("translator is not assigned to this job")

	// ErrInvalidRequest marks malformed input from a caller
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotificationDeliveryFailed wraps transport failures of email, SMS or push
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// Rejected wraps ErrValidationRejected with a reason
func Rejected(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidationRejected, reason)
}
