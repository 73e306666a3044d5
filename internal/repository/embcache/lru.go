package embcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/tracksearch/internal/db"
)

// LRUStore is an in-process cache store for deployments without Redis.
type LRUStore struct {
	cache *lru.Cache[string, []byte]
}

// NewLRUStore creates a store holding at most size entries.
func NewLRUStore(size int) (*LRUStore, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &LRUStore{cache: c}, nil
}

// Get returns db.ErrKeyNotFound on a miss, like the Redis store.
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// Set stores value, evicting the least recently used entry when full.
func (s *LRUStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Add(key, value)
	return nil
}

// Len reports the number of cached entries.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
