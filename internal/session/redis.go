package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements HistoryStore using redis, for deployments that want
// the cache to survive process restarts or be shared across replicas.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func historyKey(userID string) string {
	return "chat_history:" + userID
}

// Get implements HistoryStore.
func (s *redisStore) Get(ctx context.Context, userID string) (*UserHistory, error) {
	val, err := s.client.Get(ctx, historyKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var history UserHistory
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, err
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, historyKey(userID), s.ttl).Err()

	return &history, nil
}

// Put implements HistoryStore.
func (s *redisStore) Put(ctx context.Context, userID string, history *UserHistory) error {
	history.UpdatedAt = time.Now()

	val, err := json.Marshal(history)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, historyKey(userID), val, s.ttl).Err()
}

// Delete implements HistoryStore.
func (s *redisStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, historyKey(userID)).Err()
}

// Close implements HistoryStore.
func (s *redisStore) Close() error {
	return s.client.Close()
}
