package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/kvstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemorySessionStore(t *testing.T, cfg Config) (*Store, *testClock) {
	t.Helper()
	clock := newTestClock()
	cfg.Clock = clock.Now
	kv := kvstore.NewMemory(kvstore.WithMemoryClock(clock.Now))
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv, cfg), clock
}

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(kvstore.NewRedis(rdb, kvstore.RedisConfig{Prefix: "test:"}), Config{MaxIdle: time.Hour})
	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestCreateAndValidate(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{})
	ctx := context.Background()

	sess, err := store.Create(ctx, "acct-1", DeviceInfo{UserAgent: "ua", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.ID) != 22 {
		t.Fatalf("unexpected session id %q", sess.ID)
	}

	clock.Advance(time.Hour)
	got, err := store.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.AccountID != "acct-1" || got.Device.IP != "10.0.0.1" {
		t.Fatalf("unexpected session %+v", got)
	}
	if !got.LastAccess.Equal(clock.Now()) {
		t.Fatalf("LastAccess=%v want %v", got.LastAccess, clock.Now())
	}
}

func TestValidateUnknown(t *testing.T) {
	store, _ := newMemorySessionStore(t, Config{})
	if _, err := store.Validate(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateIdleExpiry(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{MaxIdle: time.Hour})
	ctx := context.Background()
	sess, err := store.Create(ctx, "acct-1", DeviceInfo{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Activity within the idle window keeps the session alive indefinitely.
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Minute)
		if _, err := store.Validate(ctx, sess.ID); err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
	}

	clock.Advance(61 * time.Minute)
	if _, err := store.Validate(ctx, sess.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// The expired session was deleted.
	if _, err := store.Validate(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	list, err := store.List(ctx, "acct-1")
	if err != nil || len(list) != 0 {
		t.Fatalf("List after expiry = %v, %v", list, err)
	}
}

func TestLastAccessNeverMovesBackwards(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{})
	ctx := context.Background()
	sess, _ := store.Create(ctx, "acct-1", DeviceInfo{})

	clock.Advance(10 * time.Minute)
	first, err := store.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	clock.Advance(-5 * time.Minute)
	second, err := store.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if second.LastAccess.Before(first.LastAccess) {
		t.Fatalf("LastAccess went backwards: %v -> %v", first.LastAccess, second.LastAccess)
	}
}

func TestConcurrentValidateIsMonotonic(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{})
	ctx := context.Background()
	sess, _ := store.Create(ctx, "acct-1", DeviceInfo{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			if _, err := store.Validate(ctx, sess.ID); err != nil {
				t.Errorf("Validate: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastAccess.After(clock.Now()) || got.LastAccess.Before(sess.CreatedAt) {
		t.Fatalf("LastAccess %v outside [%v, %v]", got.LastAccess, sess.CreatedAt, clock.Now())
	}
}

func TestGetDoesNotBump(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{})
	ctx := context.Background()
	sess, _ := store.Create(ctx, "acct-1", DeviceInfo{})

	clock.Advance(time.Minute)
	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.LastAccess.Equal(sess.LastAccess) {
		t.Fatalf("Get bumped LastAccess to %v", got.LastAccess)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	store, _ := newMemorySessionStore(t, Config{})
	ctx := context.Background()
	sess, _ := store.Create(ctx, "acct-1", DeviceInfo{})

	removed, err := store.Invalidate(ctx, sess.ID)
	if err != nil || !removed {
		t.Fatalf("first Invalidate = %v, %v", removed, err)
	}
	removed, err = store.Invalidate(ctx, sess.ID)
	if err != nil || removed {
		t.Fatalf("second Invalidate = %v, %v", removed, err)
	}
	if _, err := store.Validate(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidateAllAndList(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, "acct-1", DeviceInfo{Label: "d"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		clock.Advance(time.Second)
	}
	other, _ := store.Create(ctx, "acct-2", DeviceInfo{})

	list, err := store.List(ctx, "acct-1")
	if err != nil || len(list) != 3 {
		t.Fatalf("List = %d sessions, %v", len(list), err)
	}
	if !list[0].CreatedAt.Before(list[2].CreatedAt) {
		t.Fatal("List should be ordered oldest first")
	}

	n, err := store.InvalidateAll(ctx, "acct-1")
	if err != nil || n != 3 {
		t.Fatalf("InvalidateAll = %d, %v", n, err)
	}
	for _, s := range list {
		if _, err := store.Validate(ctx, s.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("session %s survived InvalidateAll: %v", s.ID, err)
		}
	}
	if _, err := store.Validate(ctx, other.ID); err != nil {
		t.Fatalf("other account's session affected: %v", err)
	}
}

func TestMaxPerAccountEvictsOldest(t *testing.T) {
	store, clock := newMemorySessionStore(t, Config{MaxPerAccount: 2})
	ctx := context.Background()

	first, _ := store.Create(ctx, "acct-1", DeviceInfo{})
	clock.Advance(time.Second)
	second, _ := store.Create(ctx, "acct-1", DeviceInfo{})
	clock.Advance(time.Second)
	third, err := store.Create(ctx, "acct-1", DeviceInfo{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Validate(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oldest session should be evicted, got %v", err)
	}
	for _, s := range []*Session{second, third} {
		if _, err := store.Validate(ctx, s.ID); err != nil {
			t.Fatalf("session %s should survive: %v", s.ID, err)
		}
	}
}

func TestRedisBackedStore(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	sess, err := store.Create(ctx, "acct-r", DeviceInfo{UserAgent: "ua"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !mr.Exists("test:sess:" + sess.ID) {
		t.Fatal("session key missing in redis")
	}
	if ttl := mr.TTL("test:sess:" + sess.ID); ttl != 2*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	if _, err := store.Validate(ctx, sess.ID); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	n, err := store.InvalidateAll(ctx, "acct-r")
	if err != nil || n != 1 {
		t.Fatalf("InvalidateAll = %d, %v", n, err)
	}
}

func TestStoreUnavailable(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	mr.Close()

	if _, err := store.Create(context.Background(), "acct", DeviceInfo{}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
