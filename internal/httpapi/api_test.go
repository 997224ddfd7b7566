package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/httpx"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceEmail    = "alice@example.com"
	alicePassword = "Correct-horse-42!"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine   *authcore.Engine
	handler  http.Handler
	clock    *clock
	registry *prometheus.Registry
}

func newFixture(t *testing.T, mutate func(*authcore.Config)) *fixture {
	t.Helper()
	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdef-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdef-012345678")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	cfg.Account.DefaultRole = "developer"
	if mutate != nil {
		mutate(&cfg)
	}

	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithClock(clk.Now).
		WithLogger(logging.Discard()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	reg := prometheus.NewRegistry()
	api := New(engine, Options{Logger: logging.Discard(), Registry: reg, Version: "test"})
	return &fixture{engine: engine, handler: api.Handler(), clock: clk, registry: reg}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (f *fixture) registerAlice(t *testing.T) registerResponse {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": aliceEmail, "username": "alice", "password": alicePassword,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[registerResponse](t, rr)
}

func (f *fixture) loginAlice(t *testing.T) loginResponse {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": aliceEmail, "password": alicePassword,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[loginResponse](t, rr)
}

func TestRegisterAndLoginLockoutOverHTTP(t *testing.T) {
	f := newFixture(t, nil)

	reg := f.registerAlice(t)
	assert.Equal(t, aliceEmail, reg.Account.Email)
	assert.NotEmpty(t, reg.Tokens.AccessToken)
	assert.NotEmpty(t, reg.Tokens.RefreshToken)

	for i := 0; i < 5; i++ {
		rr := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": aliceEmail, "password": "Wrong-horse-42!",
		})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "invalid_credentials", decode[httpx.ErrorBody](t, rr).Error.Code)
	}

	rr := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": aliceEmail, "password": alicePassword,
	})
	require.Equal(t, http.StatusLocked, rr.Code)
	body := decode[httpx.ErrorBody](t, rr)
	assert.Equal(t, "account_locked", body.Error.Code)
	assert.Positive(t, body.Remaining)

	f.clock.Advance(15*time.Minute + time.Second)
	login := f.loginAlice(t)
	assert.NotEmpty(t, login.SessionID)
	assert.Equal(t, 0, login.Account.FailedAttempts)
}

func TestRegisterErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)

	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": aliceEmail, "username": "alice2", "password": alicePassword,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "account_exists", decode[httpx.ErrorBody](t, rr).Error.Code)

	rr = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "bob@example.com", "username": "bob", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[httpx.ErrorBody](t, rr)
	assert.Equal(t, "weak_password", body.Error.Code)
	assert.NotEmpty(t, body.Violations)

	rr = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_request", decode[httpx.ErrorBody](t, rr).Error.Code)

	rr = f.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "x@example.com", "admin": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.registerAlice(t)

	rr := f.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rotated := decode[tokensResponse](t, rr)
	assert.NotEqual(t, reg.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	rr = f.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": reg.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_refresh_token", decode[httpx.ErrorBody](t, rr).Error.Code)

	rr = f.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutAndSessions(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.registerAlice(t)
	login := f.loginAlice(t)

	rr := f.do(t, http.MethodGet, "/auth/sessions", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sessions := decode[struct {
		Sessions []authcore.SessionInfo `json:"sessions"`
	}](t, rr)
	assert.Len(t, sessions.Sessions, 2)

	rr = f.do(t, http.MethodPost, "/auth/logout", login.Tokens.AccessToken, map[string]string{"sessionId": reg.SessionID})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodGet, "/auth/sessions", reg.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/logout", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodGet, "/auth/sessions", login.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutAll(t *testing.T) {
	f := newFixture(t, nil)
	f.registerAlice(t)
	login := f.loginAlice(t)

	rr := f.do(t, http.MethodPost, "/auth/logout-all", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[map[string]int](t, rr)["revoked"])
}

func TestAPIKeyLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.registerAlice(t)
	token := reg.Tokens.AccessToken

	rr := f.do(t, http.MethodPost, "/auth/api-keys", token, map[string]string{"name": "ci"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decode[authcore.GeneratedAPIKey](t, rr)
	require.NotEmpty(t, created.Key)
	assert.Equal(t, created.Key[len(created.Key)-8:], created.KeyID)

	rr = f.do(t, http.MethodGet, "/auth/api-keys", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[listAPIKeysResponse](t, rr)
	require.Len(t, list.APIKeys, 1)
	assert.Equal(t, created.KeyID, list.APIKeys[0].ID)
	assert.NotContains(t, rr.Body.String(), created.Key)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("X-API-Key", created.Key)
	me := httptest.NewRecorder()
	f.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	got := decode[meResponse](t, me)
	assert.Equal(t, reg.Account.ID, got.AccountID)
	assert.Equal(t, created.KeyID, got.APIKeyID)

	rr = f.do(t, http.MethodDelete, "/auth/api-keys/"+created.KeyID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodDelete, "/auth/api-keys/"+created.KeyID, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "api_key_not_found", decode[httpx.ErrorBody](t, rr).Error.Code)

	me = httptest.NewRecorder()
	f.handler.ServeHTTP(me, req)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestAPIKeyRoutesWithDefaultRole(t *testing.T) {
	defaultRole := authcore.DefaultConfig().Account.DefaultRole
	f := newFixture(t, func(cfg *authcore.Config) { cfg.Account.DefaultRole = defaultRole })
	reg := f.registerAlice(t)
	require.Equal(t, defaultRole, reg.Account.Role)
	token := reg.Tokens.AccessToken

	rr := f.do(t, http.MethodPost, "/auth/api-keys", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decode[authcore.GeneratedAPIKey](t, rr)

	rr = f.do(t, http.MethodGet, "/auth/api-keys", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, decode[listAPIKeysResponse](t, rr).APIKeys, 1)

	rr = f.do(t, http.MethodDelete, "/auth/api-keys/"+created.KeyID, token, nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/auth/api-keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeviceInfoShapes(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": aliceEmail, "username": "alice", "password": alicePassword,
		"deviceInfo": "signup-laptop",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	shapes := []any{
		map[string]any{"userAgent": "cli/1.2", "label": "work", "platform": "linux"},
		"phone",
		nil,
	}
	for _, device := range shapes {
		rr := f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
			"email": aliceEmail, "password": alicePassword, "deviceInfo": device,
		})
		require.Equal(t, http.StatusOK, rr.Code, "deviceInfo %v: %s", device, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": aliceEmail, "password": alicePassword, "deviceInfo": 42,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	login := f.loginAlice(t)
	rr = f.do(t, http.MethodGet, "/auth/sessions", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sessions := decode[struct {
		Sessions []authcore.SessionInfo `json:"sessions"`
	}](t, rr).Sessions

	labels := map[string]string{}
	for _, s := range sessions {
		labels[s.Label] = s.UserAgent
	}
	assert.Contains(t, labels, "signup-laptop")
	assert.Contains(t, labels, "phone")
	assert.Equal(t, "cli/1.2", labels["work"])
}

func TestMeChecksSessionLiveness(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.registerAlice(t)
	token := reg.Tokens.AccessToken

	rr := f.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouteRateLimitSetsRetryAfter(t *testing.T) {
	f := newFixture(t, func(cfg *authcore.Config) {
		cfg.RateLimit.API = authcore.RateRule{MaxRequests: 2, Window: time.Minute}
	})

	var rr *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rr = f.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": "nope"})
	}
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Positive(t, decode[httpx.ErrorBody](t, rr).RetryAfter)
}

func TestMiddlewareChain(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	const id = "2f0a3c9e-8d2b-4c47-9f61-5b1f0e7d2a10"
	req.Header.Set(RequestIDHeader, id)
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, id, rr.Header().Get(RequestIDHeader))

	big := strings.NewReader(`{"email":"` + strings.Repeat("a", int(httpx.MaxBodyBytes)) + `"}`)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", big)
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpointExposesHTTPMetrics(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/healthz", "", nil)

	rr := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
	assert.Contains(t, rr.Body.String(), "authcore_login_success_total 0")
}

func TestRecovererAnswersInternalFailure(t *testing.T) {
	h := Recoverer(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode[httpx.ErrorBody](t, rr)
	assert.Equal(t, "internal_failure", body.Error.Code)
	assert.Equal(t, "internal failure", body.Error.Message)
}
