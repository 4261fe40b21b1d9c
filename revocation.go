package authcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryRevocationSet is the single-instance logout blacklist: a concurrent
// set of token IDs with lazy expiry. Entries vanish with the process; a
// multi-instance deployment must use [RedisRevocationSet] or its own
// implementation.
type MemoryRevocationSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationSet() *MemoryRevocationSet {
	return &MemoryRevocationSet{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationSet) Add(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.entries[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationSet) Contains(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.entries[tokenID]
	if !ok {
		return false, nil
	}
	if s.now().After(deadline) {
		delete(s.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// prune drops expired entries; called under the lock on every Add so the
// set stays bounded by the count of tokens revoked within one TTL.
func (s *MemoryRevocationSet) prune() {
	now := s.now()
	for id, deadline := range s.entries {
		if now.After(deadline) {
			delete(s.entries, id)
		}
	}
}

// RedisRevocationSet externalizes the blacklist so any process replica sees
// a logout immediately. Keys expire with the token, keeping the set bounded.
type RedisRevocationSet struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisRevocationSet(redisClient redis.UniversalClient, prefix string) *RedisRevocationSet {
	if prefix == "" {
		prefix = "acrv"
	}
	return &RedisRevocationSet{redis: redisClient, prefix: prefix}
}

func (s *RedisRevocationSet) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *RedisRevocationSet) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisRevocationSet) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
