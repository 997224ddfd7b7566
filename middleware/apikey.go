package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
)

// APIKeyHeader carries an account API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKeyOrBearer authenticates with X-API-Key when present and falls
// back to a Bearer token in mode otherwise. A bad key never falls through to
// the Bearer check.
func RequireAPIKeyOrBearer(engine *authcore.Engine, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				res *authcore.AuthResult
				err error
			)
			if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" && engine != nil {
				res, err = engine.AuthenticateAPIKey(r.Context(), key)
			} else {
				res, err = authenticateBearer(r, engine, mode)
			}
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}
