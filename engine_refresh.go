package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/logging"
)

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// single-use: its jti is recorded until the token would have expired, and a
// second presentation is treated as theft and revokes the bound session.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if ip := clientIPFromContext(ctx); ip != "" {
		if err := e.CheckRateLimit(ctx, LimiterRefresh, ip); err != nil {
			if errors.Is(err, ErrRateLimited) {
				e.metricInc(MetricRefreshRateLimited)
			}
			return nil, err
		}
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, e.refreshFailed(ctx, "", "", "invalid", err)
	}

	ttl := time.Second
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Time.Sub(e.now()); left > ttl {
			ttl = left
		}
	}
	fresh, err := e.store.SetNX(ctx, "rt:"+claims.ID, []byte(claims.Subject), ttl)
	if err != nil {
		return nil, e.internal(ctx, "mark refresh token", err)
	}
	if !fresh {
		e.metricInc(MetricRefreshReplayDetected)
		logging.FromContext(ctx, e.logger).WarnContext(ctx, "refresh token replay detected",
			"account_id", claims.Subject,
			"session_id", claims.SID,
		)
		if claims.SID != "" {
			if removed, ierr := e.sessions.Invalidate(ctx, claims.SID); ierr == nil && removed {
				e.metricInc(MetricSessionInvalidated)
			}
		}
		e.emitAudit(ctx, AuditRefreshReplay, false, claims.Subject, claims.SID, ErrInvalidRefreshToken, nil)
		return nil, e.refreshFailed(ctx, claims.Subject, claims.SID, "replay", nil)
	}

	acct, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, e.refreshFailed(ctx, claims.Subject, claims.SID, "unknown_account", err)
		}
		return nil, e.internal(ctx, "load account", err)
	}

	if claims.SID != "" {
		if _, err := e.sessions.Validate(ctx, claims.SID); err != nil {
			if isMissingSession(err) {
				return nil, e.refreshFailed(ctx, acct.ID, claims.SID, "session_invalid", err)
			}
			return nil, e.internal(ctx, "validate session", err)
		}
	}

	pair, err := e.issueTokens(acct, claims.SID)
	if err != nil {
		return nil, e.internal(ctx, "issue tokens", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefreshSuccess, true, acct.ID, claims.SID, nil, nil)
	return &pair, nil
}

func (e *Engine) refreshFailed(ctx context.Context, accountID, sessionID, reason string, cause error) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditRefreshFailure, false, accountID, sessionID, ErrInvalidRefreshToken, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return newError(ErrInvalidRefreshToken, cause)
}
