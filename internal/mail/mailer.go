package mail

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Outcome reports the provider-assigned id and delivery status.
type Outcome struct {
	ID     string
	Status string
}

// Mailer delivers email through an external provider. Implementations live
// at the edge; callers in the registration flow treat failures as
// best-effort and never roll back committed state because of them.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Outcome, error)
}

// LogMailer writes messages to the log instead of delivering them. Used in
// development and as the default when no transport is configured.
type LogMailer struct {
	logger *zap.Logger
	from   string
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger *zap.Logger, from string) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

// Send logs the message and reports it as delivered.
func (m *LogMailer) Send(_ context.Context, msg Message) (*Outcome, error) {
	id := uuid.NewString()
	m.logger.Info("outbound email",
		zap.String("id", id),
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return &Outcome{ID: id, Status: "logged"}, nil
}
