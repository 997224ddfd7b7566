package security

import (
	"fmt"
	"time"
)

// Argon2 cost floors below which the report warns, after the OWASP password
// storage guidance for Argon2id.
const (
	minArgon2MemoryKiB = 19 * 1024
	maxAccessTTL       = time.Hour
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	SessionMaxIdle         time.Duration
	Argon2                 PasswordReport
	PasswordUpgradeOnLogin bool
	LockoutActive          bool
	RateLimitingActive     bool
	RateLimitFailClosed    bool
	SessionCapsActive      bool
	AuditEnabled           bool
	// Warnings lists settings weaker than recommended, in a stable order.
	Warnings []string
}

type ReportInput struct {
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	SessionMaxIdle         time.Duration
	MaxSessionsPerAccount  int
	Password               PasswordReport
	PasswordUpgradeOnLogin bool
	MinPasswordLength      int
	MaxFailedAttempts      int
	LockoutDuration        time.Duration
	LoginRateMax           int
	RateLimitFailClosed    bool
	AuditEnabled           bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:       input.SigningAlgorithm,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		SessionMaxIdle:         input.SessionMaxIdle,
		Argon2:                 input.Password,
		PasswordUpgradeOnLogin: input.PasswordUpgradeOnLogin,
		LockoutActive:          input.MaxFailedAttempts > 0 && input.LockoutDuration > 0,
		RateLimitingActive:     input.LoginRateMax > 0,
		RateLimitFailClosed:    input.RateLimitFailClosed,
		SessionCapsActive:      input.MaxSessionsPerAccount > 0,
		AuditEnabled:           input.AuditEnabled,
	}

	warn := func(format string, args ...any) {
		r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	}
	if input.Password.Memory < minArgon2MemoryKiB {
		warn("argon2 memory %d KiB is below %d KiB", input.Password.Memory, minArgon2MemoryKiB)
	}
	if input.Password.Time < 2 && input.Password.Memory < 2*minArgon2MemoryKiB {
		warn("argon2 time cost %d is low for %d KiB of memory", input.Password.Time, input.Password.Memory)
	}
	if input.MinPasswordLength < 8 {
		warn("minimum password length %d is below 8", input.MinPasswordLength)
	}
	if input.AccessTTL > maxAccessTTL {
		warn("access token TTL %s exceeds %s", input.AccessTTL, maxAccessTTL)
	}
	if !r.LockoutActive {
		warn("account lockout is disabled")
	}
	if !r.RateLimitingActive {
		warn("login rate limiting is disabled")
	}
	if !r.AuditEnabled {
		warn("audit trail is disabled")
	}
	return r
}
