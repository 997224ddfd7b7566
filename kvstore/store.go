package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrUnavailable wraps backend transport failures.
	ErrUnavailable = errors.New("kvstore: backend unavailable")
	// ErrConflict is returned by Update when optimistic retries are exhausted.
	ErrConflict = errors.New("kvstore: update conflict")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kvstore: store closed")
)

// Counter is the state of a fixed-window counter after an increment.
type Counter struct {
	Count int64
	// TTL is the time left until the counter resets.
	TTL time.Duration
}

// UpdateFunc receives the current value of a key and returns its replacement.
// Returning a nil next value deletes the key. A ttl <= 0 stores the value without
// expiry. Returning an error aborts the update and leaves the key untouched.
//
// The function may run more than once on optimistic backends and must not call
// back into the store.
type UpdateFunc func(current []byte, exists bool) (next []byte, ttl time.Duration, err error)

// Store is the storage contract shared by the in-memory and Redis backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Incr increments a fixed-window counter. The window starts on the first
	// increment and is never extended by later ones.
	Incr(ctx context.Context, key string, window time.Duration) (Counter, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// Sweep evicts expired entries and returns how many were removed. Backends
	// with native expiry return 0.
	Sweep(ctx context.Context) (int, error)
	Close() error
}
