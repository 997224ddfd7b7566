package authcore

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
)

// AuditEvent is the record handed to an [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events. Emit is called from the dispatcher
// goroutine, one event at a time.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

// ChannelSink exposes events on a channel, mainly for tests.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a structured logger.
type SlogSink = internalaudit.SlogSink

// MultiSink fans events out to several sinks.
type MultiSink = internalaudit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// Audit event types.
const (
	AuditRegister         = "register"
	AuditLoginSuccess     = "login_success"
	AuditLoginFailure     = "login_failure"
	AuditLoginLocked      = "login_locked"
	AuditAccountLocked    = "account_locked"
	AuditRefreshSuccess   = "refresh_success"
	AuditRefreshFailure   = "refresh_failure"
	AuditRefreshReplay    = "refresh_replay"
	AuditLogout           = "logout"
	AuditLogoutAll        = "logout_all"
	AuditRateLimited      = "rate_limited"
	AuditAPIKeyCreated    = "api_key_created"
	AuditAPIKeyRevoked    = "api_key_revoked"
	AuditAPIKeyAuthFailed = "api_key_auth_failed"
	AuditTOTPSetup        = "totp_setup"
	AuditTOTPEnabled      = "totp_enabled"
	AuditTOTPDisabled     = "totp_disabled"
	AuditTOTPFailure      = "totp_failure"
	AuditPasswordRehashed = "password_rehashed"
)
