package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// StubPublisher logs events instead of publishing them. Used when no broker
// is configured, so the core never has to care whether Kafka is present.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a StubPublisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (s *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	s.logger.Debug("event dropped (no broker)",
		zap.String("event", "session_revoked"),
		zap.String("session_id", event.SessionID))
	return nil
}

func (s *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	s.logger.Debug("event dropped (no broker)",
		zap.String("event", "account_locked"),
		zap.String("kind", string(event.Kind)))
	return nil
}

func (s *StubPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	s.logger.Debug("event dropped (no broker)",
		zap.String("event", "security_alert"),
		zap.String("level", string(event.Level)))
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// StubPushQueue logs notifications instead of enqueueing them.
type StubPushQueue struct {
	logger *zap.Logger
}

// NewStubPushQueue constructs a StubPushQueue.
func NewStubPushQueue(logger *zap.Logger) *StubPushQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPushQueue{logger: logger}
}

func (s *StubPushQueue) Enqueue(_ context.Context, notification domain.PushNotification) error {
	s.logger.Debug("notification dropped (no broker)",
		zap.String("dedupe_key", notification.DedupeKey))
	return nil
}

var _ port.PushQueue = (*StubPushQueue)(nil)
