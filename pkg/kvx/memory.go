package kvx

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore implements Store in-process on ttlcache. State is lost on
// restart and not shared between replicas, so it only fits single-node
// deployments and tests.
type MemoryStore struct {
	cache  *ttlcache.Cache[string, string]
	closed atomic.Bool
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)

// NewMemoryStore creates the store and starts ttlcache's expiry loop.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		// Reads must never push an entry's expiry out.
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	go cache.Start()

	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := checkTTL(ttl); err != nil {
		return err
	}

	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}

	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", ErrNotFound
	}
	return item.Value(), nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if err := s.check(); err != nil {
		return err
	}

	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return s.check() }

// Sweep removes expired entries ttlcache hasn't gotten to yet.
func (s *MemoryStore) Sweep(context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	before := s.cache.Len()
	s.cache.DeleteExpired()
	return max(before-s.cache.Len(), 0), nil
}

// Len is the number of entries held, expired ones included until swept.
func (s *MemoryStore) Len() int { return s.cache.Len() }

// Close stops the expiry loop. Every later call fails with ErrUnavailable.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cache.Stop()
	}
	return nil
}

func (s *MemoryStore) check() error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	return nil
}
