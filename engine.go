package authcore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/account"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/ids"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kvstore"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
)

// Engine is the authentication gateway. All methods are safe for concurrent use
// once Build has returned.
type Engine struct {
	config         Config
	logger         *slog.Logger
	now            func() time.Time
	store          kvstore.Store
	ownsStore      bool
	accounts       account.Repository
	roleManager    *permission.RoleManager
	vault          *password.Vault
	tokens         *jwt.Manager
	sessions       *session.Store
	limiters       *rate.Registry
	accountLimiter *limiters.AccountCreationLimiter
	lockout        *limiters.LockoutGuard
	totp           *totpManager
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	ids            *ids.Generator
}

// Close flushes audit events and stops the hashing pool. A store created by
// the Builder is closed too; stores passed in by the caller are not.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.vault != nil {
		e.vault.Close()
	}
	if e.ownsStore && e.store != nil {
		_ = e.store.Close()
	}
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// RunJanitor sweeps expired entries of the engine's store every
// Store.SweepInterval until ctx ends.
func (e *Engine) RunJanitor(ctx context.Context) error {
	return kvstore.NewJanitor(e.store, e.config.Store.SweepInterval, e.logger).Run(ctx)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Validate verifies an access token without touching any store.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, newError(ErrInvalidToken, err)
	}
	res := &AuthResult{
		AccountID:   claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Perms,
		SessionID:   claims.SID,
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res, nil
}

// ValidateWithSession verifies the token and, when it is bound to a session,
// that the session is still live. The session's LastAccess is bumped.
func (e *Engine) ValidateWithSession(ctx context.Context, accessToken string) (*AuthResult, error) {
	res, err := e.Validate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if res.SessionID == "" {
		return res, nil
	}
	if _, err := e.ValidateSession(ctx, res.SessionID); err != nil {
		return nil, err
	}
	return res, nil
}

// ValidateSession checks and touches a session. Unknown and idle-expired
// sessions both yield ErrSessionExpired.
func (e *Engine) ValidateSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s, err := e.sessions.Validate(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrExpired):
			e.metricInc(MetricSessionExpired)
			return nil, newError(ErrSessionExpired, err)
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorrupt):
			return nil, newError(ErrSessionExpired, err)
		default:
			return nil, e.internal(ctx, "validate session", err)
		}
	}
	info := newSessionInfo(s)
	return &info, nil
}

// Authorize returns ErrPermissionDenied unless the verified identity holds
// perm. It reads only the claims; no store is consulted.
func (e *Engine) Authorize(res *AuthResult, perm string) error {
	if res == nil {
		return newError(ErrInvalidToken, nil)
	}
	if !permission.HasPermission(res.Role, res.Permissions, perm) {
		e.metricInc(MetricPermissionDenied)
		return newError(ErrPermissionDenied, nil)
	}
	return nil
}

// HasPermission answers for a role plus explicit grants using the configured
// role templates.
func (e *Engine) HasPermission(role string, extra []string, perm string) bool {
	return e.roleManager.Resolve(role, extra).Has(perm) || role == permission.AdminRole
}

// CheckRateLimit counts one hit against a named limiter. It returns a
// rate-limited *Error with RetryAfter when over the threshold and an internal
// failure when the store is down.
func (e *Engine) CheckRateLimit(ctx context.Context, limiter, identifier string) error {
	l, err := e.limiters.Get(limiter)
	if err != nil {
		return e.internal(ctx, "rate limit lookup", err)
	}
	d, err := l.Allow(ctx, identifier)
	if err != nil {
		return e.internal(ctx, "rate limit", err)
	}
	if !d.Allowed {
		e.emitRateLimit(ctx, limiter)
		return rateLimitedError(d.RetryAfter)
	}
	return nil
}

// RateLimitFailClosed reports whether request limiting should reject traffic
// when the limiter store is unavailable.
func (e *Engine) RateLimitFailClosed() bool {
	return e.config.RateLimit.FailClosed
}

func (e *Engine) resolvePermissions(a *account.Account) []string {
	return e.roleManager.Resolve(a.Role, a.Permissions).Slice()
}

// issueTokens mints a pair bound to sessionID (may be empty).
func (e *Engine) issueTokens(a *account.Account, sessionID string) (TokenPair, error) {
	pair, err := e.tokens.Issue(jwt.Subject{
		AccountID:   a.ID,
		Email:       a.Email,
		Role:        a.Role,
		Permissions: e.resolvePermissions(a),
		SessionID:   sessionID,
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		TokenType:        "Bearer",
	}, nil
}

// deviceFromContext fills empty device fields from the request context.
func deviceFromContext(ctx context.Context, d DeviceInfo) DeviceInfo {
	if d.IP == "" {
		d.IP = clientIPFromContext(ctx)
	}
	if d.UserAgent == "" {
		d.UserAgent = userAgentFromContext(ctx)
	}
	return d
}

// internal logs cause at Error and returns the opaque internal failure.
func (e *Engine) internal(ctx context.Context, op string, cause error) error {
	e.metricInc(MetricInternalFailure)
	logging.FromContext(ctx, e.logger).ErrorContext(ctx, "auth operation failed",
		"op", op,
		"error", cause,
		"request_id", RequestIDFromContext(ctx),
	)
	return internalError(cause)
}
