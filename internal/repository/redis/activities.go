package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
)

// ActivityRepository retains per-user security activity in a Redis sorted
// set scored by the activity timestamp. Both bounds (retention window and
// entry cap) are enforced on every append so the stored window never grows
// past what risk scoring reads.
type ActivityRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewActivityRepository constructs a repository using the provided client.
func NewActivityRepository(client *redis.Client, keyPrefix string) *ActivityRepository {
	return &ActivityRepository{client: client, keyPrefix: keyPrefix}
}

// Append stores the activity and trims the retained window.
func (r *ActivityRepository) Append(ctx context.Context, activity domain.Activity, retention time.Duration, maxEntries int) error {
	bytes, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	key := r.key(activity.UserID)
	threshold := fmt.Sprintf("%f", float64(activity.Timestamp.Add(-retention).UnixNano()))

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(activity.Timestamp.UnixNano()),
		Member: bytes,
	})
	if retention > 0 {
		pipe.ZRemRangeByScore(ctx, key, "-inf", threshold)
		pipe.Expire(ctx, key, retention)
	}
	if maxEntries > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-maxEntries-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	return nil
}

// ListWindow returns activities within the window ending at reference time,
// oldest first.
func (r *ActivityRepository) ListWindow(ctx context.Context, userID string, window time.Duration, reference time.Time) ([]domain.Activity, error) {
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	values, err := r.client.ZRangeByScore(ctx, r.key(userID), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrangebyscore: %w", err)
	}

	activities := make([]domain.Activity, 0, len(values))
	for _, value := range values {
		var activity domain.Activity
		if err := json.Unmarshal([]byte(value), &activity); err != nil {
			return nil, fmt.Errorf("unmarshal activity: %w", err)
		}
		activities = append(activities, activity)
	}

	return activities, nil
}

func (r *ActivityRepository) key(userID string) string {
	return fmt.Sprintf("%s:activity:%s", r.keyPrefix, userID)
}

var _ port.ActivityStore = (*ActivityRepository)(nil)
