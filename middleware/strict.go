package middleware

import (
	"net/http"

	"github.com/MrEthical07/authcore"
)

func RequireStrict(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, ModeStrict)
}
