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

// DeviceRepository stores each user's recently seen fingerprints in a Redis
// hash (fingerprint -> record JSON) paired with a sorted set indexing
// last-seen time for LRU eviction.
type DeviceRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewDeviceRepository constructs a repository using the provided client.
func NewDeviceRepository(client *redis.Client, keyPrefix string) *DeviceRepository {
	return &DeviceRepository{client: client, keyPrefix: keyPrefix}
}

// Upsert records a sighting of the fingerprint, evicts beyond maxDevices
// (least recently seen first) and refreshes the retention TTL.
func (r *DeviceRepository) Upsert(ctx context.Context, userID string, record domain.FingerprintRecord, maxDevices int, retention time.Duration) error {
	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal fingerprint record: %w", err)
	}

	hashKey := r.hashKey(userID)
	indexKey := r.indexKey(userID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, record.Fingerprint, bytes)
	pipe.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(record.LastSeen.UnixNano()),
		Member: record.Fingerprint,
	})
	if retention > 0 {
		pipe.Expire(ctx, hashKey, retention)
		pipe.Expire(ctx, indexKey, retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}

	if maxDevices > 0 {
		evicted, err := r.client.ZRange(ctx, indexKey, 0, int64(-maxDevices-1)).Result()
		if err != nil {
			return fmt.Errorf("redis zrange: %w", err)
		}
		if len(evicted) > 0 {
			pipe := r.client.TxPipeline()
			pipe.HDel(ctx, hashKey, evicted...)
			pipe.ZRemRangeByRank(ctx, indexKey, 0, int64(len(evicted)-1))
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("evict fingerprints: %w", err)
			}
		}
	}

	return nil
}

// List returns the user's known fingerprints ordered most recently seen
// first.
func (r *DeviceRepository) List(ctx context.Context, userID string) ([]domain.FingerprintRecord, error) {
	fingerprints, err := r.client.ZRevRange(ctx, r.indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(fingerprints) == 0 {
		return nil, nil
	}

	values, err := r.client.HMGet(ctx, r.hashKey(userID), fingerprints...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	records := make([]domain.FingerprintRecord, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var record domain.FingerprintRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("unmarshal fingerprint record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *DeviceRepository) hashKey(userID string) string {
	return fmt.Sprintf("%s:devices:%s", r.keyPrefix, userID)
}

func (r *DeviceRepository) indexKey(userID string) string {
	return fmt.Sprintf("%s:devices_seen:%s", r.keyPrefix, userID)
}

var _ port.DeviceStore = (*DeviceRepository)(nil)
