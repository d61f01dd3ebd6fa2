package notification

import (
	"context"
	"log/slog"
)

// Transport hands a message to the provider that actually delivers it
type Transport interface {
	Deliver(ctx context.Context, msg *Message) error
}

// LogTransport records deliveries in the log. It stands in for the mail, SMS
// and push providers, which live outside this service.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log transport
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch msg.Kind {
	case KindEmail:
		t.logger.Info("Email delivered",
			slog.String("message_id", msg.ID),
			slog.String("to", msg.Email.To),
			slog.String("subject", msg.Email.Subject),
			slog.String("template", msg.Email.Template),
		)
	case KindSMS:
		t.logger.Info("SMS delivered",
			slog.String("message_id", msg.ID),
			slog.String("to", msg.SMS.To),
		)
	case KindPush:
		attrs := []any{
			slog.String("message_id", msg.ID),
			slog.Int64("job_id", msg.Push.JobID),
			slog.Int("recipients", len(msg.Push.UserIDs)),
			slog.Bool("delayed", msg.Push.Delayed),
		}
		if msg.Push.SendAfter != nil {
			attrs = append(attrs, slog.Time("send_after", *msg.Push.SendAfter))
		}
		t.logger.Info("Push delivered", attrs...)
	}

	return nil
}
