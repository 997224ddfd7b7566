package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
	"github.com/MrEthical07/authcore/internal/logging"
)

// KeyFunc extracts the identifier a request is counted under. An empty key
// skips limiting.
type KeyFunc func(r *http.Request) string

// ByClientIP counts requests per client address as set by [ClientInfo].
func ByClientIP(r *http.Request) string {
	if ip := ClientIP(r); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// ByAccount counts per authenticated account and falls back to the client
// address for anonymous requests.
func ByAccount(r *http.Request) string {
	if res, ok := AuthResultFromContext(r.Context()); ok && res.AccountID != "" {
		return "acct:" + res.AccountID
	}
	return ByClientIP(r)
}

// RateLimit counts each request against the named engine limiter and answers
// 429 with Retry-After once it is exhausted. When the limiter store fails the
// request passes, unless the engine is configured to fail closed.
func RateLimit(engine *authcore.Engine, limiter string, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := key(r)
			if engine == nil || id == "" {
				next.ServeHTTP(w, r)
				return
			}
			err := engine.CheckRateLimit(r.Context(), limiter, id)
			switch {
			case err == nil:
			case errors.Is(err, authcore.ErrRateLimited):
				httpx.WriteError(w, err)
				return
			case engine.RateLimitFailClosed():
				httpx.WriteError(w, err)
				return
			default:
				logging.FromContext(r.Context(), engine.Logger()).WarnContext(r.Context(), "rate limiter unavailable, failing open",
					"limiter", limiter)
			}
			next.ServeHTTP(w, r)
		})
	}
}
