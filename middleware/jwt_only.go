package middleware

import (
	"net/http"

	"github.com/MrEthical07/authcore"
)

// RequireJWTOnly returns a [Guard] in [ModeJWTOnly]. Revoked sessions are
// still accepted until their access tokens expire.
func RequireJWTOnly(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, ModeJWTOnly)
}
