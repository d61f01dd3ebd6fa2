package notification

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the delivery channel of a notification
type Kind string

const (
	KindEmail Kind = "email"
	KindSMS   Kind = "sms"
	KindPush  Kind = "push"
)

// ErrInvalidMessage is returned for messages the worker cannot deliver
var ErrInvalidMessage = errors.New("invalid notification message")

// Message is the body published to the notification queue
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Email     *Email    `json:"email,omitempty"`
	SMS       *SMS      `json:"sms,omitempty"`
	Push      *Push     `json:"push,omitempty"`
}

// Email is a templated mail
type Email struct {
	To       string         `json:"to"`
	Name     string         `json:"name"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// SMS is a text message to a phone number
type SMS struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Push targets app users by id. Recipients are also tagged by email for the
// push provider.
type Push struct {
	UserIDs   []int64        `json:"user_ids"`
	Emails    []string       `json:"emails"`
	JobID     int64          `json:"job_id"`
	Data      map[string]any `json:"data,omitempty"`
	Text      string         `json:"text"`
	Delayed   bool           `json:"delayed"`
	SendAfter *time.Time     `json:"send_after,omitempty"`
}

// Validate checks that the payload matches the kind
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}

	switch m.Kind {
	case KindEmail:
		if m.Email == nil || m.Email.To == "" {
			return fmt.Errorf("%w: email without recipient", ErrInvalidMessage)
		}
	case KindSMS:
		if m.SMS == nil || m.SMS.To == "" {
			return fmt.Errorf("%w: sms without recipient", ErrInvalidMessage)
		}
	case KindPush:
		if m.Push == nil || len(m.Push.UserIDs) == 0 {
			return fmt.Errorf("%w: push without recipients", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}

	return nil
}
