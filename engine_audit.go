package authcore

import (
	"context"

	"github.com/google/uuid"
)

// emitAudit queues one event. metadataBuilder runs only when auditing is on.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = ErrorCode(err)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, limiter string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, AuditRateLimited, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{"limiter": limiter}
	})
}
