package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/password"
)

// errLockedDuringLogin aborts a success update when a concurrent failure
// locked the account first.
var errLockedDuringLogin = errors.New("account locked during login")

// Login authenticates email and password (plus a TOTP code when MFA is on),
// opens a session and returns tokens bound to it.
//
// Every credential failure answers ErrInvalidCredentials, including the one
// that trips the lockout; the following attempt observes ErrAccountLocked.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, invalidRequest("email is required")
	}

	if ip := clientIPFromContext(ctx); ip != "" {
		if err := e.loginRateLimit(ctx, "ip:"+ip); err != nil {
			return nil, err
		}
	}
	if err := e.loginRateLimit(ctx, "email:"+email); err != nil {
		return nil, err
	}

	acct, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Same Argon2 work as a real check so response time does not reveal
			// whether the email is registered.
			if derr := e.vault.DummyVerify(ctx, req.Password); derr != nil && !isPasswordInputError(derr) {
				return nil, e.internal(ctx, "dummy verify", derr)
			}
			return nil, e.loginFailed(ctx, "", "unknown_account")
		}
		return nil, e.internal(ctx, "load account", err)
	}

	now := e.now()
	if status := e.lockout.Check(acct.LoginState(), now); status.Locked {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, AuditLoginLocked, false, acct.ID, "", ErrAccountLocked, nil)
		return nil, lockedError(status.Remaining)
	}

	ok, err := e.vault.Verify(ctx, req.Password, acct.PasswordHash)
	if err != nil && !isPasswordInputError(err) {
		return nil, e.internal(ctx, "verify password", err)
	}
	if !ok {
		return nil, e.credentialFailure(ctx, acct, "password")
	}

	if acct.MFAEnabled {
		if err := e.verifyLoginTOTP(ctx, acct, req.TOTPCode); err != nil {
			return nil, err
		}
	}

	state, err := e.accounts.UpdateLoginState(ctx, acct.ID, func(s *account.LoginState) error {
		if e.lockout.Check(*s, now).Locked {
			return errLockedDuringLogin
		}
		e.lockout.RecordSuccess(s, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockedDuringLogin) {
			fresh, gerr := e.accounts.GetByID(ctx, acct.ID)
			if gerr == nil {
				return nil, lockedError(e.lockout.Check(fresh.LoginState(), now).Remaining)
			}
			return nil, lockedError(e.config.Lockout.Duration)
		}
		return nil, e.internal(ctx, "record login success", err)
	}
	acct.FailedAttempts = state.FailedAttempts
	acct.LockedUntil = state.LockedUntil
	acct.LastLoginAt = state.LastLoginAt

	if e.config.Password.UpgradeOnLogin && e.vault.NeedsUpgrade(acct.PasswordHash) {
		e.upgradePasswordHash(ctx, acct, req.Password)
	}

	sess, err := e.sessions.Create(ctx, acct.ID, deviceFromContext(ctx, req.Device))
	if err != nil {
		return nil, e.internal(ctx, "create session", err)
	}
	tokens, err := e.issueTokens(acct, sess.ID)
	if err != nil {
		_, _ = e.sessions.Invalidate(ctx, sess.ID)
		return nil, e.internal(ctx, "issue tokens", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditLoginSuccess, true, acct.ID, sess.ID, nil, nil)

	return &LoginResult{
		Account:   newAccountView(acct, e.resolvePermissions(acct)),
		Tokens:    tokens,
		SessionID: sess.ID,
	}, nil
}

func (e *Engine) loginRateLimit(ctx context.Context, identifier string) error {
	err := e.CheckRateLimit(ctx, LimiterLogin, identifier)
	if err != nil && errors.Is(err, ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
	}
	return err
}

// verifyLoginTOTP enforces the second factor. A missing code is reported as
// such; a wrong or replayed code counts as a failed attempt.
func (e *Engine) verifyLoginTOTP(ctx context.Context, acct *account.Account, code string) error {
	if code == "" {
		e.metricInc(MetricTOTPRequired)
		return newError(ErrTOTPRequired, nil)
	}
	if err := e.CheckRateLimit(ctx, LimiterTOTP, acct.ID); err != nil {
		return err
	}

	ok, counter, err := e.totp.VerifyCode(acct.MFASecret, code, e.now())
	if err != nil {
		return e.internal(ctx, "verify totp", err)
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		return e.credentialFailure(ctx, acct, "totp")
	}
	accepted, err := e.totp.consume(ctx, acct.ID, counter)
	if err != nil {
		return e.internal(ctx, "totp replay state", err)
	}
	if !accepted {
		e.metricInc(MetricTOTPReplayAttempt)
		return e.credentialFailure(ctx, acct, "totp_replay")
	}
	e.metricInc(MetricTOTPSuccess)
	return nil
}

// credentialFailure records a failed attempt atomically and returns
// ErrInvalidCredentials. An attempt racing with an active lock is not counted.
func (e *Engine) credentialFailure(ctx context.Context, acct *account.Account, reason string) error {
	now := e.now()
	lockedNow := false
	_, err := e.accounts.UpdateLoginState(ctx, acct.ID, func(s *account.LoginState) error {
		if e.lockout.Check(*s, now).Locked {
			return nil
		}
		lockedNow = e.lockout.RecordFailure(s, now)
		return nil
	})
	if err != nil {
		return e.internal(ctx, "record login failure", err)
	}
	if lockedNow {
		e.metricInc(MetricAccountLocked)
		logging.FromContext(ctx, e.logger).WarnContext(ctx, "account locked after repeated failures",
			"account_id", acct.ID,
			"duration", e.config.Lockout.Duration,
		)
		e.emitAudit(ctx, AuditAccountLocked, false, acct.ID, "", ErrAccountLocked, nil)
	}
	return e.loginFailed(ctx, acct.ID, reason)
}

func (e *Engine) loginFailed(ctx context.Context, accountID, reason string) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditLoginFailure, false, accountID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return newError(ErrInvalidCredentials, nil)
}

// upgradePasswordHash rehashes with current parameters. Failure is logged and
// never fails the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, acct *account.Account, plain string) {
	hash, err := e.vault.Hash(ctx, plain)
	if err == nil {
		err = e.accounts.UpdatePasswordHash(ctx, acct.ID, hash)
	}
	if err != nil {
		logging.FromContext(ctx, e.logger).WarnContext(ctx, "password rehash failed", "account_id", acct.ID, "error", err)
		return
	}
	acct.PasswordHash = hash
	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, AuditPasswordRehashed, true, acct.ID, "", nil, nil)
}

// isPasswordInputError reports errors caused by the submitted password itself,
// which are wrong credentials rather than internal failures.
func isPasswordInputError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword)
}
