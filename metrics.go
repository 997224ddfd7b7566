package authcore

import internalmetrics "github.com/MrEthical07/authcore/internal/metrics"

// MetricID identifies one engine counter or latency histogram.
type MetricID = internalmetrics.MetricID

// Metrics is the engine's counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited      = internalmetrics.MetricLoginRateLimited
	MetricLoginLocked           = internalmetrics.MetricLoginLocked
	MetricAccountLocked         = internalmetrics.MetricAccountLocked
	MetricRegisterSuccess       = internalmetrics.MetricRegisterSuccess
	MetricRegisterDuplicate     = internalmetrics.MetricRegisterDuplicate
	MetricRegisterRateLimited   = internalmetrics.MetricRegisterRateLimited
	MetricRegisterWeakPassword  = internalmetrics.MetricRegisterWeakPassword
	MetricRefreshSuccess        = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure        = internalmetrics.MetricRefreshFailure
	MetricRefreshReplayDetected = internalmetrics.MetricRefreshReplayDetected
	MetricRefreshRateLimited    = internalmetrics.MetricRefreshRateLimited
	MetricTOTPRequired          = internalmetrics.MetricTOTPRequired
	MetricTOTPSuccess           = internalmetrics.MetricTOTPSuccess
	MetricTOTPFailure           = internalmetrics.MetricTOTPFailure
	MetricTOTPReplayAttempt     = internalmetrics.MetricTOTPReplayAttempt
	MetricTOTPEnabled           = internalmetrics.MetricTOTPEnabled
	MetricTOTPDisabled          = internalmetrics.MetricTOTPDisabled
	MetricRateLimitHit          = internalmetrics.MetricRateLimitHit
	MetricSessionCreated        = internalmetrics.MetricSessionCreated
	MetricSessionInvalidated    = internalmetrics.MetricSessionInvalidated
	MetricSessionExpired        = internalmetrics.MetricSessionExpired
	MetricLogout                = internalmetrics.MetricLogout
	MetricLogoutAll             = internalmetrics.MetricLogoutAll
	MetricAPIKeyCreated         = internalmetrics.MetricAPIKeyCreated
	MetricAPIKeyRevoked         = internalmetrics.MetricAPIKeyRevoked
	MetricAPIKeyAuthSuccess     = internalmetrics.MetricAPIKeyAuthSuccess
	MetricAPIKeyAuthFailure     = internalmetrics.MetricAPIKeyAuthFailure
	MetricPermissionDenied      = internalmetrics.MetricPermissionDenied
	MetricPasswordRehashed      = internalmetrics.MetricPasswordRehashed
	MetricInternalFailure       = internalmetrics.MetricInternalFailure
	MetricValidateLatency       = internalmetrics.MetricValidateLatency
	MetricLoginLatency          = internalmetrics.MetricLoginLatency
)

// NewMetrics creates a counter set; used directly by exporters' tests and by
// Build.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
