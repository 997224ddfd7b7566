//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/authcore"
)

func TestRefreshRaceOverRedis(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			engine := newRedisEngine(t, mode.setup(t), nil, nil)
			reg := registerAlice(t, engine)

			const n = 32
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int
			)
			start := make(chan struct{})
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					<-start
					_, err := engine.Refresh(context.Background(), reg.Tokens.RefreshToken)
					if err == nil {
						mu.Lock()
						success++
						mu.Unlock()
						return
					}
					if !errors.Is(err, authcore.ErrInvalidRefreshToken) {
						t.Errorf("unexpected refresh error: %v", err)
					}
				}()
			}
			close(start)
			wg.Wait()

			if success > 1 {
				t.Fatalf("expected at most one winner, got %d", success)
			}
			if _, err := engine.ValidateSession(context.Background(), reg.SessionID); !errors.Is(err, authcore.ErrSessionExpired) {
				t.Fatalf("replays should revoke the session, got %v", err)
			}
			if got := engine.MetricsSnapshot().Counters[authcore.MetricRefreshReplayDetected]; got != n-1 {
				t.Fatalf("replay metric=%d want %d", got, n-1)
			}
		})
	}
}
