package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/kvstore"
)

const (
	alicePassword = "Correct-horse-42!"
	aliceEmail    = "alice@example.com"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig is DefaultConfig with cheap Argon2 parameters and fixed secrets.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdef-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdef-012345678")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.Workers = 2
	cfg.Audit.Enabled = false
	return cfg
}

type testEngine struct {
	*Engine
	clock *manualClock
	store *kvstore.Memory
}

func newTestEngine(t testing.TB, cfg Config, opts ...func(*Builder)) *testEngine {
	t.Helper()

	clock := newManualClock()
	store := kvstore.NewMemory(kvstore.WithMemoryClock(clock.Now))
	b := New().WithConfig(cfg).WithClock(clock.Now).WithStore(store)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = store.Close()
	})
	return &testEngine{Engine: engine, clock: clock, store: store}
}

func (te *testEngine) registerAlice(t testing.TB) *RegisterResult {
	t.Helper()
	res, err := te.Register(context.Background(), RegisterRequest{
		Email:    aliceEmail,
		Username: "alice",
		Password: alicePassword,
	})
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	return res
}

func (te *testEngine) loginAlice(t testing.TB) *LoginResult {
	t.Helper()
	res, err := te.Login(context.Background(), LoginRequest{Email: aliceEmail, Password: alicePassword})
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	return res
}
