package password

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestVault(t *testing.T, poolSize int) *Vault {
	t.Helper()
	h, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	v := NewVault(h, nil, NewPool(poolSize))
	t.Cleanup(v.Close)
	return v
}

func TestVaultHashVerify(t *testing.T) {
	v := newTestVault(t, 2)
	ctx := context.Background()

	hash, err := v.Hash(ctx, "Secur3!Pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	ok, err := v.Verify(ctx, "Secur3!Pass", hash)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = v.Verify(ctx, "Other3!Pass", hash)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestVaultDummyVerify(t *testing.T) {
	v := newTestVault(t, 1)
	if err := v.DummyVerify(context.Background(), "whatever"); err != nil {
		t.Fatalf("DummyVerify: %v", err)
	}
}

func TestVaultNeedsUpgrade(t *testing.T) {
	weak, _ := NewArgon2(fastConfig())
	hash, err := weak.Hash("Secur3!Pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	cfg := fastConfig()
	cfg.Time = 2
	strong, _ := NewArgon2(cfg)
	v := NewVault(strong, nil, NewPool(1))
	defer v.Close()

	if !v.NeedsUpgrade(hash) {
		t.Fatal("expected upgrade for weaker hash")
	}
	if v.NeedsUpgrade("garbage") {
		t.Fatal("malformed hash must not report upgrade")
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var (
		active, peak atomic.Int32
		wg           sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := run(context.Background(), p, func() (int, error) {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return 0, nil
			})
			if err != nil {
				t.Errorf("run: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds pool size", peak.Load())
	}
}

func TestPoolHonoursContext(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = run(context.Background(), p, func() (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := run(ctx, p, func() (int, error) { return 1, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	close(release)
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(1)
	p.Close()
	p.Close()
	if _, err := run(context.Background(), p, func() (int, error) { return 1, nil }); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}
