package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed audit event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string         `json:"session_id"`
		UserID    string         `json:"user_id"`
		RevokedAt time.Time      `json:"revoked_at"`
		Reason    string         `json:"reason"`
		IP        *string        `json:"ip,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		RevokedAt: event.RevokedAt.UTC(),
		Reason:    event.Reason,
		IP:        event.IP,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		Subject     string    `json:"subject"`
		Kind        string    `json:"kind"`
		LockedAt    time.Time `json:"locked_at"`
		LockedUntil time.Time `json:"locked_until"`
		Reason      string    `json:"reason"`
		Attempts    int       `json:"attempts"`
	}{
		Subject:     event.Subject,
		Kind:        string(event.Kind),
		LockedAt:    event.LockedAt.UTC(),
		LockedUntil: event.LockedUntil.UTC(),
		Reason:      event.Reason,
		Attempts:    event.Attempts,
	}

	userID := ""
	if event.Kind == domain.LockSubjectUser {
		userID = event.Subject
	}

	return p.publish(ctx, event.EventID, "auth.account.locked", userID, event.LockedAt, payload)
}

// PublishSecurityAlert publishes auth.security.alert events.
func (p *EventPublisher) PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error {
	actions := make([]string, 0, len(event.Actions))
	for _, action := range event.Actions {
		actions = append(actions, string(action))
	}

	payload := struct {
		UserID     string    `json:"user_id"`
		Level      string    `json:"level"`
		Score      int       `json:"score"`
		Factors    []string  `json:"factors,omitempty"`
		Actions    []string  `json:"actions,omitempty"`
		AssessedAt time.Time `json:"assessed_at"`
	}{
		UserID:     event.UserID,
		Level:      string(event.Level),
		Score:      event.Score,
		Factors:    event.Factors,
		Actions:    actions,
		AssessedAt: event.AssessedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.security.alert", event.UserID, event.AssessedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
