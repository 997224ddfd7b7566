package kvstore

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often a [Janitor] sweeps when no interval is given.
const DefaultSweepInterval = time.Minute

// Janitor periodically calls Sweep on a store from its own goroutine so expired
// rate-limit counters and sessions do not accumulate.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor creates a janitor for store. A nil logger discards output.
func NewJanitor(store Store, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Janitor{store: store, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled. It always returns nil so it
// can be used directly with errgroup.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep and logs the outcome.
func (j *Janitor) SweepOnce(ctx context.Context) int {
	start := time.Now()
	removed, err := j.store.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("kvstore sweep failed", "error", err)
		}
		return removed
	}
	if removed > 0 {
		j.logger.Debug("kvstore sweep", "removed", removed, "duration", time.Since(start))
	}
	return removed
}
