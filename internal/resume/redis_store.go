package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"payment-reconciler/internal/models"
	"payment-reconciler/internal/redis"
)

const (
	// Key layout
	recordKeyPrefix = "resume:"
	latestKey       = "resume:last"

	// Resume records only need to outlive the round trip to the
	// gateway; a day is generous.
	DefaultRecordTTL = 24 * time.Hour
)

// RedisStore is the primary resume-record store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a resume store over the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    DefaultRecordTTL,
	}
}

// Save writes the record and moves the latest-record pointer to it.
func (s *RedisStore) Save(ctx context.Context, record *models.ResumeRecord) error {
	if record.ProviderCollectID == "" {
		return fmt.Errorf("resume: record missing provider collect id")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal resume record: %w", err)
	}

	key := recordKeyPrefix + record.ProviderCollectID
	if err := s.client.SetWithExpiration(ctx, key, data, s.ttl); err != nil {
		return fmt.Errorf("failed to store resume record: %w", err)
	}

	if err := s.client.SetWithExpiration(ctx, latestKey, record.ProviderCollectID, s.ttl); err != nil {
		return fmt.Errorf("failed to update latest resume pointer: %w", err)
	}

	return nil
}

// Get returns the record for a provider collect id.
func (s *RedisStore) Get(ctx context.Context, providerCollectID string) (*models.ResumeRecord, error) {
	data, err := s.client.Get(ctx, recordKeyPrefix+providerCollectID)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read resume record: %w", err)
	}

	var record models.ResumeRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume record: %w", err)
	}

	return &record, nil
}

// Latest follows the latest-record pointer.
func (s *RedisStore) Latest(ctx context.Context) (*models.ResumeRecord, error) {
	id, err := s.client.Get(ctx, latestKey)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read latest resume pointer: %w", err)
	}

	return s.Get(ctx, id)
}
