package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type windowMarker struct {
	LastSuccess time.Time `json:"last_success"`
}

// RedisStore keeps markers as JSON values under
// <prefix>:window:<testType>. Markers carry no TTL; they must survive
// between nightly runs.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a redis-backed marker store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(testType string) string {
	return fmt.Sprintf("%s:window:%s", s.prefix, testType)
}

// LastSuccess reads the stored marker.
func (s *RedisStore) LastSuccess(ctx context.Context, testType string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key(testType)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("state: read marker: %w", err)
	}

	var marker windowMarker
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		return time.Time{}, false, fmt.Errorf("state: decode marker: %w", err)
	}
	return marker.LastSuccess, true, nil
}

// Commit advances the marker unless the stored one is already newer.
func (s *RedisStore) Commit(ctx context.Context, testType string, t time.Time) error {
	current, ok, err := s.LastSuccess(ctx, testType)
	if err != nil {
		return err
	}
	if ok && !t.After(current) {
		return nil
	}

	data, err := json.Marshal(windowMarker{LastSuccess: t.UTC()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(testType), data, 0).Err(); err != nil {
		return fmt.Errorf("state: write marker: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
