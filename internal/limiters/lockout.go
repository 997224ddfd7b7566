package limiters

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/account"
)

const (
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 15 * time.Minute
)

// LockoutConfig holds the lockout thresholds.
type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// Validate reports whether the thresholds can be enforced.
func (c LockoutConfig) Validate() error {
	if c.MaxFailedAttempts <= 0 {
		return errors.New("lockout MaxFailedAttempts must be > 0")
	}
	if c.Duration <= 0 {
		return errors.New("lockout Duration must be > 0")
	}
	return nil
}

// LockoutStatus is the result of [LockoutGuard.Check].
type LockoutStatus struct {
	Locked    bool
	Remaining time.Duration
}

// RemainingSeconds rounds Remaining up to whole seconds. It is at least 1 while
// locked.
func (s LockoutStatus) RemainingSeconds() int {
	if !s.Locked {
		return 0
	}
	secs := int((s.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// LockoutGuard applies failure counting and lock transitions to a login state.
type LockoutGuard struct {
	config LockoutConfig
}

// NewLockoutGuard creates a guard. Zero fields fall back to 5 attempts / 15 minutes.
func NewLockoutGuard(cfg LockoutConfig) *LockoutGuard {
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = defaultMaxFailedAttempts
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultLockoutDuration
	}
	return &LockoutGuard{config: cfg}
}

// Config returns the effective thresholds.
func (g *LockoutGuard) Config() LockoutConfig {
	return g.config
}

// Check reports whether state is locked at now.
func (g *LockoutGuard) Check(state account.LoginState, now time.Time) LockoutStatus {
	if state.LockedUntil.IsZero() || !state.LockedUntil.After(now) {
		return LockoutStatus{}
	}
	return LockoutStatus{Locked: true, Remaining: state.LockedUntil.Sub(now)}
}

// RecordFailure counts one failed attempt. When the threshold is reached the
// account is locked for the configured duration, the counter starts over, and
// true is returned.
func (g *LockoutGuard) RecordFailure(state *account.LoginState, now time.Time) bool {
	if !state.LockedUntil.IsZero() && !state.LockedUntil.After(now) {
		state.LockedUntil = time.Time{}
	}
	state.FailedAttempts++
	if state.FailedAttempts < g.config.MaxFailedAttempts {
		return false
	}
	state.LockedUntil = now.Add(g.config.Duration)
	state.FailedAttempts = 0
	return true
}

// RecordSuccess clears failures and any lock.
func (g *LockoutGuard) RecordSuccess(state *account.LoginState, now time.Time) {
	state.FailedAttempts = 0
	state.LockedUntil = time.Time{}
	state.LastLoginAt = now
}
