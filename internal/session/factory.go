package session

import (
	"context"
	"sync"
	"time"
)

// StoreType represents the type of history store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// NewStore creates a HistoryStore of the given type. Supports "memory" and
// "redis" drivers. For redis, WithRedisClient is required.
func NewStore(storeType StoreType, opts ...StoreOption) (HistoryStore, error) {
	config := &storeConfig{}

	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return &memoryStore{
			histories: make(map[string]*UserHistory),
		}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{
			client: config.redisClient,
			ttl:    ttl,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// memoryStore implements HistoryStore using an in-memory map.
type memoryStore struct {
	mu        sync.RWMutex
	histories map[string]*UserHistory
}

// Get implements HistoryStore.
func (s *memoryStore) Get(ctx context.Context, userID string) (*UserHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.histories[userID]
	if !exists {
		return nil, nil
	}
	return history, nil
}

// Put implements HistoryStore.
func (s *memoryStore) Put(ctx context.Context, userID string, history *UserHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history.UpdatedAt = time.Now()
	s.histories[userID] = history
	return nil
}

// Delete implements HistoryStore.
func (s *memoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, userID)
	return nil
}

// Close implements HistoryStore.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.histories = nil
	return nil
}
