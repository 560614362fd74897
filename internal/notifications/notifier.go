package notifications

import (
	"context"
	"log"
	"time"

	"spark-service/internal/models"
)

// Publisher publishes notification intents.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Email templates rendered by the downstream mailer.
const (
	TemplateConnectionRequested = "connection_requested"
	TemplateConnectionAccepted  = "connection_accepted"
)

// EmailEnvelope is the message handed to the mailer. The mailer
// resolves the recipient's address from the user id; this service
// never handles addresses directly.
type EmailEnvelope struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	Template      string              `json:"template"`
	OccurredAt    string              `json:"occurred_at"`
	Service       string              `json:"service"`
	Environment   string              `json:"environment"`
	Recipient     models.UserSnapshot `json:"recipient"`
	Subject       models.UserSnapshot `json:"subject"`
}

// EmailNotifier publishes spark lifecycle emails over AMQP. It is
// strictly best-effort: a failed publish is retried once at the
// transport level, logged, and never surfaced to the caller.
type EmailNotifier struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewEmailNotifier builds an EmailNotifier.
func NewEmailNotifier(publisher Publisher, routingKey, service, environment string) *EmailNotifier {
	return &EmailNotifier{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// ConnectionRequested tells the recipient someone sparked them.
func (n *EmailNotifier) ConnectionRequested(ctx context.Context, recipient, requester models.UserSnapshot) {
	n.emit(ctx, TemplateConnectionRequested, recipient, requester)
}

// ConnectionAccepted tells the original requester their spark was
// accepted.
func (n *EmailNotifier) ConnectionAccepted(ctx context.Context, requester, recipient models.UserSnapshot) {
	n.emit(ctx, TemplateConnectionAccepted, requester, recipient)
}

func (n *EmailNotifier) emit(ctx context.Context, template string, recipient, subject models.UserSnapshot) {
	if n == nil || n.publisher == nil {
		return
	}

	envelope := EmailEnvelope{
		SchemaVersion: 1,
		EventType:     "email_notification",
		Template:      template,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       n.service,
		Environment:   n.environment,
		Recipient:     recipient,
		Subject:       subject,
	}

	const maxAttempts = 2
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = n.publisher.Publish(ctx, n.routingKey+"."+template, envelope); err == nil {
			return
		}
		log.Printf("email notification publish failed: template=%s recipient=%d attempt=%d err=%v", template, recipient.ID, attempt, err)
	}
}
