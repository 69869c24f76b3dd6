// Package kvx is a narrow string key-value abstraction with per-key TTL,
// backed by Redis in production and by an in-process cache for single-node
// deployments and tests.
package kvx

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("kvx: key not found")

	// ErrUnavailable wraps every backend failure (timeouts, refused
	// connections, closed stores). Callers must not read it as "absent".
	ErrUnavailable = errors.New("kvx: store unavailable")

	// ErrInvalidTTL rejects writes that would never expire.
	ErrInvalidTTL = errors.New("kvx: ttl must be positive")
)

// Store is the key-value contract. Every operation is atomic for a single
// key and visible to the next call once it returns.
type Store interface {
	// Put writes value under key, replacing any previous value, and expires
	// it after ttl.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Exists reports whether key holds a live value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Sweeper is implemented by backends that need help evicting expired keys.
// Redis expires keys on its own and does not implement it.
type Sweeper interface {
	// Sweep drops expired entries and reports how many went.
	Sweep(ctx context.Context) (int, error)
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
