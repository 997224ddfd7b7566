package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/kvstore"
)

// SetupTOTP starts enrollment: a fresh secret is kept pending until
// ConfirmTOTP proves the authenticator app has it.
func (e *Engine) SetupTOTP(ctx context.Context, accountID string) (*TOTPSetup, error) {
	if e == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	acct, err := e.loadAuthenticatedAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.MFAEnabled {
		return nil, newError(ErrTOTPAlreadyActive, nil)
	}

	raw, encoded, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, e.internal(ctx, "generate totp secret", err)
	}
	if err := e.store.Set(ctx, pendingTOTPKey(acct.ID), raw, e.config.TOTP.SetupTTL); err != nil {
		return nil, e.internal(ctx, "store pending totp", err)
	}

	e.emitAudit(ctx, AuditTOTPSetup, true, acct.ID, "", nil, nil)
	return &TOTPSetup{
		Secret: encoded,
		URI:    e.totp.ProvisionURI(encoded, acct.Email),
	}, nil
}

// ConfirmTOTP enables MFA once code matches the pending secret.
func (e *Engine) ConfirmTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	if err := e.CheckRateLimit(ctx, LimiterTOTP, accountID); err != nil {
		return err
	}

	secret, err := e.store.Get(ctx, pendingTOTPKey(accountID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return newError(ErrTOTPNotConfigured, err)
		}
		return e.internal(ctx, "load pending totp", err)
	}
	if err := e.checkTOTPCode(ctx, accountID, secret, code); err != nil {
		return err
	}

	if err := e.accounts.UpdateMFA(ctx, accountID, true, secret); err != nil {
		return e.internal(ctx, "enable totp", err)
	}
	if _, err := e.store.Delete(ctx, pendingTOTPKey(accountID)); err != nil {
		logging.FromContext(ctx, e.logger).WarnContext(ctx, "pending totp cleanup failed", "account_id", accountID, "error", err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, AuditTOTPEnabled, true, accountID, "", nil, nil)
	return nil
}

// DisableTOTP turns MFA off after a valid code.
func (e *Engine) DisableTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	if err := e.CheckRateLimit(ctx, LimiterTOTP, accountID); err != nil {
		return err
	}

	acct, err := e.loadAuthenticatedAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.MFAEnabled || len(acct.MFASecret) == 0 {
		return newError(ErrTOTPNotConfigured, nil)
	}
	if err := e.checkTOTPCode(ctx, acct.ID, acct.MFASecret, code); err != nil {
		return err
	}

	if err := e.accounts.UpdateMFA(ctx, acct.ID, false, nil); err != nil {
		return e.internal(ctx, "disable totp", err)
	}
	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, AuditTOTPDisabled, true, acct.ID, "", nil, nil)
	return nil
}

// checkTOTPCode verifies code and consumes its time step.
func (e *Engine) checkTOTPCode(ctx context.Context, accountID string, secret []byte, code string) error {
	ok, counter, err := e.totp.VerifyCode(secret, code, e.now())
	if err != nil {
		return e.internal(ctx, "verify totp", err)
	}
	if ok {
		accepted, cerr := e.totp.consume(ctx, accountID, counter)
		if cerr != nil {
			return e.internal(ctx, "totp replay state", cerr)
		}
		if accepted {
			e.metricInc(MetricTOTPSuccess)
			return nil
		}
		e.metricInc(MetricTOTPReplayAttempt)
	}
	e.metricInc(MetricTOTPFailure)
	e.emitAudit(ctx, AuditTOTPFailure, false, accountID, "", ErrTOTPInvalid, nil)
	return newError(ErrTOTPInvalid, nil)
}
