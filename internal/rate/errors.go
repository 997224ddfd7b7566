package rate

import "errors"

var (
	// ErrRateLimited is returned by callers that convert a rejected [Decision] into an error.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps storage failures while counting.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrUnknownLimiter is returned by [Registry.Get] for unregistered names.
	ErrUnknownLimiter = errors.New("unknown rate limiter")
)
