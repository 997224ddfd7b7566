package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/kvstore"
)

// Policy is the threshold of one named limiter.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Validate reports whether the policy can be enforced.
func (p Policy) Validate() error {
	if p.Name == "" {
		return errors.New("rate policy name must not be empty")
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("rate policy %q MaxRequests must be > 0", p.Name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate policy %q Window must be > 0", p.Name)
	}
	return nil
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int
	// RetryAfter is the time left in the current window. It is only meaningful
	// when Allowed is false.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter is a named fixed-window limiter over a [kvstore.Store].
type Limiter struct {
	store  kvstore.Store
	policy Policy
}

// New creates a limiter enforcing policy.
func New(store kvstore.Store, policy Policy) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate limiter requires a store")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, policy: policy}, nil
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow counts one request from identifier and reports whether it is admitted.
func (l *Limiter) Allow(ctx context.Context, identifier string) (Decision, error) {
	return Check(ctx, l.store, l.policy.Name, identifier, l.policy.MaxRequests, l.policy.Window)
}

// Reset clears the counter for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if _, err := l.store.Delete(ctx, key(l.policy.Name, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Check is the ad-hoc form of Allow: it counts a hit for identifier under the
// limiter namespace name with the given threshold.
func Check(ctx context.Context, store kvstore.Store, name, identifier string, maxRequests int, window time.Duration) (Decision, error) {
	c, err := store.Incr(ctx, key(name, identifier), window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	d := Decision{
		Count: c.Count,
		Limit: maxRequests,
	}
	if c.Count <= int64(maxRequests) {
		d.Allowed = true
		d.Remaining = maxRequests - int(c.Count)
		return d, nil
	}

	d.RetryAfter = c.TTL
	if d.RetryAfter <= 0 {
		d.RetryAfter = window
	}
	return d, nil
}

func key(name, identifier string) string {
	return "rl:" + name + ":" + identifier
}
