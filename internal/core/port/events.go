package port

import (
	"context"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
)

// EventPublisher publishes security audit events to the message bus.
type EventPublisher interface {
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error
}

// PreferenceBus is the in-process publish/subscribe channel carrying
// preference-change notifications from mutation call sites to the prayer
// scheduler. Publish must never block the caller.
type PreferenceBus interface {
	Publish(event domain.PreferencesChangedEvent)
	Subscribe() <-chan domain.PreferencesChangedEvent
}
