package authcore

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/limiters"
)

const maxEmailBytes = 254

// Register creates an account with the default role, opens a session and
// returns a token pair bound to it.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if err := e.accountLimiter.Enforce(ctx, email, clientIPFromContext(ctx)); err != nil {
		var rejection *limiters.AccountCreationRejection
		if errors.As(err, &rejection) {
			e.metricInc(MetricRegisterRateLimited)
			e.emitRateLimit(ctx, LimiterRegister)
			return nil, rateLimitedError(rejection.Decision.RetryAfter)
		}
		return nil, e.internal(ctx, "register rate limit", err)
	}

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := e.validateUsername(username); err != nil {
		return nil, err
	}
	if strength := e.vault.ValidateStrength(req.Password); !strength.Valid {
		e.metricInc(MetricRegisterWeakPassword)
		return nil, weakPasswordError(strength.Violations)
	}

	hash, err := e.vault.Hash(ctx, req.Password)
	if err != nil {
		return nil, e.internal(ctx, "hash password", err)
	}

	id, err := e.ids.New()
	if err != nil {
		return nil, e.internal(ctx, "account id", err)
	}
	now := e.now()
	acct := &account.Account{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         e.config.Account.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditRegister, false, "", "", ErrAccountExists, nil)
			return nil, newError(ErrAccountExists, err)
		}
		return nil, e.internal(ctx, "create account", err)
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

	e.metricInc(MetricRegisterSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditRegister, true, acct.ID, sess.ID, nil, nil)

	return &RegisterResult{
		Account:   newAccountView(acct, e.resolvePermissions(acct)),
		Tokens:    tokens,
		SessionID: sess.ID,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail accepts a bare RFC 5322 address; display names and angle
// brackets are rejected.
func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailBytes {
		return invalidRequest("email is required and must be at most 254 bytes")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalidRequest("email is not a valid address")
	}
	return nil
}

func (e *Engine) validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < e.config.Account.UsernameMinLength || n > e.config.Account.UsernameMaxLength {
		return invalidRequest("username length is out of range")
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return invalidRequest("username contains control characters")
		}
	}
	return nil
}
