package service

import (
	"context"

	"spark-service/internal/models"
)

// Notifier delivers out-of-band notifications (transactional email)
// for spark lifecycle events. Implementations are best-effort: they
// log and swallow failures, so the caller's state change is never
// rolled back by a notification problem.
type Notifier interface {
	ConnectionRequested(ctx context.Context, recipient, requester models.UserSnapshot)
	ConnectionAccepted(ctx context.Context, requester, recipient models.UserSnapshot)
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) ConnectionRequested(ctx context.Context, recipient, requester models.UserSnapshot) {
}

func (NoopNotifier) ConnectionAccepted(ctx context.Context, requester, recipient models.UserSnapshot) {
}
