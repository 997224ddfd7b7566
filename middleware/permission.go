package middleware

import (
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
)

// RequirePermission answers 403 unless the authenticated caller holds perm.
// It must run behind a guard; without an AuthResult it answers 401.
func RequirePermission(engine *authcore.Engine, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, authcore.ErrInvalidToken)
				return
			}
			if err := engine.Authorize(res, perm); err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
