package kvstore

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const memoryShardCount = 32

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// MemoryOption configures a [Memory] store.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the time source used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is a process-local [Store]. Entries expire lazily on access and are
// evicted in bulk by [Memory.Sweep].
type Memory struct {
	shards [memoryShardCount]memoryShard
	now    func() time.Time
	closed atomic.Bool
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for i := range m.shards {
		m.shards[i].entries = make(map[string]memoryEntry)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%memoryShardCount]
}

// lookup returns the live entry for key. The shard lock must be held.
func (s *memoryShard) lookup(key string, now time.Time) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(now) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, m.now())
	if !ok {
		return nil, ErrNotFound
	}
	return cloneValue(e.value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: cloneValue(value), expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key, m.now()); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: cloneValue(value), expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	if m.closed.Load() {
		return false, ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(key, m.now())
	delete(s.entries, key)
	return ok, nil
}

func (m *Memory) Incr(ctx context.Context, key string, window time.Duration) (Counter, error) {
	if m.closed.Load() {
		return Counter{}, ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	e, ok := s.lookup(key, now)
	if !ok {
		e = memoryEntry{value: []byte("0"), expiresAt: m.expiry(window)}
	}

	count, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		count = 0
	}
	count++
	e.value = strconv.AppendInt(nil, count, 10)
	s.entries[key] = e

	var ttl time.Duration
	if !e.expiresAt.IsZero() {
		ttl = e.expiresAt.Sub(now)
	}
	return Counter{Count: count, TTL: ttl}, nil
}

// Update runs fn under the shard lock, so updates to one key are serialized.
func (m *Memory) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if m.closed.Load() {
		return ErrClosed
	}
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, m.now())
	var current []byte
	if ok {
		current = cloneValue(e.value)
	}

	next, ttl, err := fn(current, ok)
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = memoryEntry{value: cloneValue(next), expiresAt: m.expiry(ttl)}
	return nil
}

// Sweep walks every shard and drops expired entries. Each shard is locked only
// while it is being swept.
func (m *Memory) Sweep(ctx context.Context) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	removed := 0
	for i := range m.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		s := &m.shards[i]
		now := m.now()
		s.mu.Lock()
		for key, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored entries, including ones that have expired but
// not yet been swept.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

func cloneValue(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
