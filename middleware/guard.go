package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
)

// Mode selects how much a guard verifies.
type Mode int

const (
	// ModeStrict verifies the token and the liveness of its session.
	ModeStrict Mode = iota
	// ModeJWTOnly verifies the token alone, without a store round-trip.
	ModeJWTOnly
)

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok && res != nil
}

// WithAuthResult stores res in ctx the way the guards do.
func WithAuthResult(ctx context.Context, res *authcore.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid Bearer token with 401.
func Guard(engine *authcore.Engine, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := authenticateBearer(r, engine, mode)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

func authenticateBearer(r *http.Request, engine *authcore.Engine, mode Mode) (*authcore.AuthResult, error) {
	if engine == nil {
		return nil, authcore.ErrInvalidToken
	}
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, authcore.ErrInvalidToken
	}
	if mode == ModeJWTOnly {
		return engine.Validate(r.Context(), token)
	}
	return engine.ValidateWithSession(r.Context(), token)
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	value = strings.TrimSpace(value)
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
