package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
)

type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in export order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricLoginLocked, Name: "authcore_login_locked_total", Help: "Login attempts against a locked account."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Created accounts."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authcore.MetricRegisterRateLimited, Name: "authcore_register_rate_limited_total", Help: "Rate-limited registrations."},
	{ID: authcore.MetricRegisterWeakPassword, Name: "authcore_register_weak_password_total", Help: "Registrations rejected by the password policy."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected token refreshes."},
	{ID: authcore.MetricRefreshReplayDetected, Name: "authcore_refresh_replay_detected_total", Help: "Refresh tokens presented twice."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Rate-limited refreshes."},
	{ID: authcore.MetricTOTPRequired, Name: "authcore_totp_required_total", Help: "Logins that needed a TOTP code."},
	{ID: authcore.MetricTOTPSuccess, Name: "authcore_totp_success_total", Help: "Accepted TOTP codes."},
	{ID: authcore.MetricTOTPFailure, Name: "authcore_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: authcore.MetricTOTPReplayAttempt, Name: "authcore_totp_replay_attempt_total", Help: "TOTP codes reused within their step."},
	{ID: authcore.MetricTOTPEnabled, Name: "authcore_totp_enabled_total", Help: "TOTP enrollments confirmed."},
	{ID: authcore.MetricTOTPDisabled, Name: "authcore_totp_disabled_total", Help: "TOTP enrollments removed."},
	{ID: authcore.MetricRateLimitHit, Name: "authcore_rate_limit_hit_total", Help: "Requests denied by any limiter."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionInvalidated, Name: "authcore_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: authcore.MetricSessionExpired, Name: "authcore_session_expired_total", Help: "Sessions found idle-expired."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricAPIKeyCreated, Name: "authcore_api_key_created_total", Help: "Generated API keys."},
	{ID: authcore.MetricAPIKeyRevoked, Name: "authcore_api_key_revoked_total", Help: "Revoked API keys."},
	{ID: authcore.MetricAPIKeyAuthSuccess, Name: "authcore_api_key_auth_success_total", Help: "Requests authenticated by API key."},
	{ID: authcore.MetricAPIKeyAuthFailure, Name: "authcore_api_key_auth_failure_total", Help: "Rejected API keys."},
	{ID: authcore.MetricPermissionDenied, Name: "authcore_permission_denied_total", Help: "Authorization checks that failed."},
	{ID: authcore.MetricPasswordRehashed, Name: "authcore_password_rehashed_total", Help: "Password hashes upgraded on login."},
	{ID: authcore.MetricInternalFailure, Name: "authcore_internal_failure_total", Help: "Operations failed by storage, hashing or signing errors."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: authcore.MetricLoginLatency, Name: "authcore_login_latency_seconds", Help: "Login latency."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "authcore_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf and has no entry.
var HistogramUpperBounds = func() []float64 {
	out := make([]float64, len(internalmetrics.BucketUpperBounds))
	for i, d := range internalmetrics.BucketUpperBounds {
		out[i] = d.Seconds()
	}
	return out
}()

// HistogramBoundSuffix names each bucket for exporters without native
// histograms: "0_005" for 5ms, "inf" for the last.
var HistogramBoundSuffix = func() []string {
	out := make([]string, 0, internalmetrics.HistogramBucketCount)
	for _, b := range HistogramUpperBounds {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(b, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}()

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [internalmetrics.HistogramBucketCount]uint64 {
	var out [internalmetrics.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [internalmetrics.HistogramBucketCount]uint64) [internalmetrics.HistogramBucketCount]uint64 {
	var out [internalmetrics.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
