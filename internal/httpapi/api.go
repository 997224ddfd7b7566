// Package httpapi serves the engine over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
	promexport "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Logger *slog.Logger
	// TrustProxy honours X-Forwarded-For for the client address.
	TrustProxy bool
	// Registry receives the HTTP and engine metrics and backs /metrics. Nil
	// disables both.
	Registry *prometheus.Registry
	// Version is reported by /healthz.
	Version string
}

// API is the HTTP layer over one engine.
type API struct {
	mux     *http.ServeMux
	engine  *authcore.Engine
	logger  *slog.Logger
	opts    Options
	metrics *httpMetrics
}

func New(engine *authcore.Engine, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = engine.Logger()
	}
	a := &API{
		mux:    http.NewServeMux(),
		engine: engine,
		logger: logger,
		opts:   opts,
	}
	if opts.Registry != nil {
		a.metrics = newHTTPMetrics(opts.Registry)
		opts.Registry.MustRegister(promexport.NewCollector(engine))
	}
	a.routes()
	return a
}

func (a *API) routes() {
	var (
		ipLimit      = middleware.RateLimit(a.engine, authcore.LimiterAPI, middleware.ByClientIP)
		accountLimit = middleware.RateLimit(a.engine, authcore.LimiterAPI, middleware.ByAccount)
		bearer       = middleware.RequireStrict(a.engine)
		anyCred      = middleware.RequireAPIKeyOrBearer(a.engine, middleware.ModeStrict)
	)

	a.mux.HandleFunc("GET /healthz", a.healthz)
	if a.opts.Registry != nil {
		a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.opts.Registry, promhttp.HandlerOpts{}))
	}

	a.mux.Handle("POST /auth/register", chain(http.HandlerFunc(a.register), ipLimit))
	a.mux.Handle("POST /auth/login", chain(http.HandlerFunc(a.login), ipLimit))
	a.mux.Handle("POST /auth/refresh", chain(http.HandlerFunc(a.refresh), ipLimit))

	a.mux.Handle("POST /auth/logout", chain(http.HandlerFunc(a.logout), bearer, accountLimit))
	a.mux.Handle("POST /auth/logout-all", chain(http.HandlerFunc(a.logoutAll), bearer, accountLimit))
	a.mux.Handle("GET /auth/sessions", chain(http.HandlerFunc(a.listSessions), bearer, accountLimit))
	a.mux.Handle("GET /auth/me", chain(http.HandlerFunc(a.me), anyCred, accountLimit))

	a.mux.Handle("POST /auth/api-keys", chain(http.HandlerFunc(a.createAPIKey), bearer, accountLimit))
	a.mux.Handle("GET /auth/api-keys", chain(http.HandlerFunc(a.listAPIKeys), bearer, accountLimit))
	a.mux.Handle("DELETE /auth/api-keys/{keyId}", chain(http.HandlerFunc(a.revokeAPIKey), bearer, accountLimit))

	a.mux.Handle("POST /auth/totp/setup", chain(http.HandlerFunc(a.totpSetup), bearer, accountLimit))
	a.mux.Handle("POST /auth/totp/confirm", chain(http.HandlerFunc(a.totpConfirm), bearer, accountLimit))
	a.mux.Handle("POST /auth/totp/disable", chain(http.HandlerFunc(a.totpDisable), bearer, accountLimit))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{
			Error: httpx.ErrorDetail{Code: "not_found", Message: "route not found"},
		})
	})
}

// Handler returns the mux wrapped in the outer middleware chain. The
// instrumentation wraps the mux directly so it can read the matched pattern.
func (a *API) Handler() http.Handler {
	outer := []func(http.Handler) http.Handler{
		RequestID,
		Logging(a.logger),
		Recoverer(a.logger),
		SecurityHeaders,
		MaxBodyBytes(httpx.MaxBodyBytes),
		middleware.ClientInfo(a.opts.TrustProxy),
	}
	if a.metrics != nil {
		outer = append(outer, a.metrics.instrument)
	}
	return chain(a.mux, outer...)
}

// chain wraps h so that mws[0] runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authcore",
		"version": a.opts.Version,
	})
}
