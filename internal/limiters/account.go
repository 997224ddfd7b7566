package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcore/internal/rate"
)

var (
	ErrAccountRateLimited      = errors.New("account creation rate limited")
	ErrAccountStoreUnavailable = errors.New("account creation limiter unavailable")
)

// AccountCreationRejection carries the rejected decision.
type AccountCreationRejection struct {
	Decision rate.Decision
}

func (e *AccountCreationRejection) Error() string {
	return ErrAccountRateLimited.Error()
}

func (e *AccountCreationRejection) Unwrap() error {
	return ErrAccountRateLimited
}

// AccountConfig toggles the two throttle dimensions.
type AccountConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
}

// AccountCreationLimiter throttles sign-ups per normalized email and per IP. Both
// dimensions share one fixed-window limiter under distinct identifier prefixes.
type AccountCreationLimiter struct {
	limiter *rate.Limiter
	config  AccountConfig
}

func NewAccountCreationLimiter(limiter *rate.Limiter, cfg AccountConfig) *AccountCreationLimiter {
	return &AccountCreationLimiter{limiter: limiter, config: cfg}
}

// Enforce counts one registration attempt. A nil limiter admits everything.
func (l *AccountCreationLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforce(ctx, "ip:"+ip); err != nil {
			return err
		}
	}
	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := l.enforce(ctx, "id:"+strings.ToLower(identifier)); err != nil {
			return err
		}
	}
	return nil
}

func (l *AccountCreationLimiter) enforce(ctx context.Context, key string) error {
	d, err := l.limiter.Allow(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}
	if !d.Allowed {
		return &AccountCreationRejection{Decision: d}
	}
	return nil
}
