package authcore

import "github.com/MrEthical07/authcore/internal/security"

// SecurityReport summarises the effective security settings and lists the
// ones weaker than recommended.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:      cfg.JWT.SigningMethod,
		AccessTTL:             cfg.JWT.AccessTTL,
		RefreshTTL:            cfg.JWT.RefreshTTL,
		SessionMaxIdle:        cfg.Session.MaxIdle,
		MaxSessionsPerAccount: cfg.Session.MaxPerAccount,
		Password: security.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		PasswordUpgradeOnLogin: cfg.Password.UpgradeOnLogin,
		MinPasswordLength:      cfg.Password.MinLength,
		MaxFailedAttempts:      cfg.Lockout.MaxFailedAttempts,
		LockoutDuration:        cfg.Lockout.Duration,
		LoginRateMax:           cfg.RateLimit.Login.MaxRequests,
		RateLimitFailClosed:    cfg.RateLimit.FailClosed,
		AuditEnabled:           cfg.Audit.Enabled,
	})
}
