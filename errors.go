package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/password"
)

var (
	// ErrInvalidCredentials is returned for unknown emails, wrong passwords and
	// wrong TOTP codes alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout is active. The *Error carries
	// the remaining duration in RetryAfter.
	ErrAccountLocked = errors.New("account locked")
	// ErrWeakPassword carries every violated rule in Violations.
	ErrWeakPassword = errors.New("password does not meet policy")
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidToken covers every access token failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken covers every refresh failure, replay included.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrPermissionDenied    = errors.New("permission denied")
	// ErrRateLimited carries the wait in RetryAfter.
	ErrRateLimited    = errors.New("rate limited")
	ErrSessionExpired = errors.New("session expired")
	// ErrInternalFailure hides storage, hashing and signing failures from
	// clients. The cause is logged.
	ErrInternalFailure = errors.New("internal failure")

	ErrInvalidRequest    = errors.New("invalid request")
	ErrTOTPRequired      = errors.New("totp code required")
	ErrTOTPInvalid       = errors.New("invalid totp code")
	ErrTOTPNotConfigured = errors.New("totp not configured")
	ErrTOTPAlreadyActive = errors.New("totp already enabled")
	ErrAPIKeyNotFound    = errors.New("api key not found")
	ErrAPIKeyLimit       = errors.New("api key limit reached")
	ErrEngineNotReady    = errors.New("engine not initialized")
)

// Error is the typed failure returned by Engine operations. errors.Is matches
// the Kind sentinel; the internal cause is reachable only through Cause so it
// cannot leak into client responses by accident.
type Error struct {
	Kind       error
	Message    string
	RetryAfter time.Duration
	Violations []password.Violation
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return ErrInternalFailure.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Cause returns the underlying error for logging.
func (e *Error) Cause() error {
	return e.cause
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1 when set.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func newError(kind error, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func internalError(cause error) *Error {
	return &Error{Kind: ErrInternalFailure, cause: cause}
}

func rateLimitedError(retryAfter time.Duration) *Error {
	return &Error{Kind: ErrRateLimited, RetryAfter: retryAfter}
}

func lockedError(remaining time.Duration) *Error {
	return &Error{Kind: ErrAccountLocked, RetryAfter: remaining}
}

func weakPasswordError(violations []password.Violation) *Error {
	return &Error{Kind: ErrWeakPassword, Violations: violations}
}

func invalidRequest(msg string) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: msg}
}

var errorCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountLocked, "account_locked"},
	{ErrWeakPassword, "weak_password"},
	{ErrAccountExists, "account_exists"},
	{ErrInvalidToken, "invalid_token"},
	{ErrInvalidRefreshToken, "invalid_refresh_token"},
	{ErrPermissionDenied, "permission_denied"},
	{ErrRateLimited, "rate_limited"},
	{ErrSessionExpired, "session_expired"},
	{ErrInvalidRequest, "invalid_request"},
	{ErrTOTPRequired, "totp_required"},
	{ErrTOTPInvalid, "totp_invalid"},
	{ErrTOTPNotConfigured, "totp_not_configured"},
	{ErrTOTPAlreadyActive, "totp_already_enabled"},
	{ErrAPIKeyNotFound, "api_key_not_found"},
	{ErrAPIKeyLimit, "api_key_limit"},
	{ErrEngineNotReady, "internal_failure"},
	{ErrInternalFailure, "internal_failure"},
}

// ErrorCode returns the stable machine-readable code for err. Anything that is
// not one of the package sentinels maps to "internal_failure".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "internal_failure"
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
