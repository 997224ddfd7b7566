package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/session"
)

// Logout ends one session of accountID. Unknown, expired and foreign session
// ids succeed without side effects so the call cannot be used as an oracle.
func (e *Engine) Logout(ctx context.Context, accountID, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return nil
	}

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if isMissingSession(err) {
			return nil
		}
		return e.internal(ctx, "load session", err)
	}
	if s.AccountID != accountID {
		return nil
	}

	removed, err := e.sessions.Invalidate(ctx, sessionID)
	if err != nil {
		return e.internal(ctx, "invalidate session", err)
	}
	if removed {
		e.metricInc(MetricSessionInvalidated)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, true, accountID, sessionID, nil, nil)
	return nil
}

// LogoutAll ends every session of accountID and reports how many were live.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.InvalidateAll(ctx, accountID)
	if err != nil {
		return 0, e.internal(ctx, "invalidate sessions", err)
	}
	for i := 0; i < n; i++ {
		e.metricInc(MetricSessionInvalidated)
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, AuditLogoutAll, true, accountID, "", nil, nil)
	return n, nil
}

// ListSessions returns the live sessions of accountID, oldest first.
func (e *Engine) ListSessions(ctx context.Context, accountID string) ([]SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	list, err := e.sessions.List(ctx, accountID)
	if err != nil {
		return nil, e.internal(ctx, "list sessions", err)
	}
	out := make([]SessionInfo, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionInfo(s))
	}
	return out, nil
}

func isMissingSession(err error) bool {
	return errors.Is(err, session.ErrNotFound) ||
		errors.Is(err, session.ErrExpired) ||
		errors.Is(err, session.ErrCorrupt)
}
