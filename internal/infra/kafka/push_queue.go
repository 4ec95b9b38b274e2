package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// PushQueue publishes prayer notifications to the delivery topic. The
// dedupe key travels both as message key and header so the downstream
// delivery layer can drop duplicate schedules.
type PushQueue struct {
	producer *Producer
	topic    string
	logger   *zap.Logger
}

// NewPushQueue constructs a Kafka-backed push queue.
func NewPushQueue(producer *Producer, topic string, logger *zap.Logger) *PushQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushQueue{producer: producer, topic: topic, logger: logger}
}

// Enqueue hands a notification to the at-least-once delivery layer.
func (q *PushQueue) Enqueue(ctx context.Context, notification domain.PushNotification) error {
	if notification.DedupeKey == "" {
		return fmt.Errorf("dedupe key is required")
	}

	bytes, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal push notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(notification.DedupeKey),
		Value: sarama.ByteEncoder(bytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("dedupe_key"), Value: []byte(notification.DedupeKey)},
		},
	}

	select {
	case q.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.PushQueue = (*PushQueue)(nil)
