package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/logging"
)

const (
	maxAPIKeyNameRunes = 64
	apiKeyMintAttempts = 3
)

// GenerateAPIKey mints a key for accountID. The returned secret is shown once;
// only its SHA-256 digest is stored.
func (e *Engine) GenerateAPIKey(ctx context.Context, accountID, name string) (*GeneratedAPIKey, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxAPIKeyNameRunes {
		return nil, invalidRequest("api key name must be at most 64 characters")
	}
	if err := e.CheckRateLimit(ctx, LimiterAPIKey, accountID); err != nil {
		return nil, err
	}

	acct, err := e.loadAuthenticatedAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(acct.APIKeys) >= e.config.APIKey.MaxPerAccount {
		return nil, newError(ErrAPIKeyLimit, nil)
	}

	for attempt := 0; attempt < apiKeyMintAttempts; attempt++ {
		key, keyID, err := internal.NewAPIKey(e.config.APIKey.Prefix)
		if err != nil {
			return nil, e.internal(ctx, "mint api key", err)
		}
		if _, taken := acct.FindAPIKey(keyID); taken {
			continue
		}
		err = e.accounts.AddAPIKey(ctx, acct.ID, account.APIKey{
			ID:        keyID,
			Prefix:    e.config.APIKey.Prefix,
			Hash:      internal.HashAPIKey(key),
			Name:      name,
			CreatedAt: e.now(),
		})
		if errors.Is(err, account.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, e.internal(ctx, "store api key", err)
		}

		e.metricInc(MetricAPIKeyCreated)
		e.emitAudit(ctx, AuditAPIKeyCreated, true, acct.ID, "", nil, func() map[string]string {
			return map[string]string{"key_id": keyID}
		})
		return &GeneratedAPIKey{Key: key, KeyID: keyID}, nil
	}
	return nil, e.internal(ctx, "mint api key", errors.New("key id collisions exhausted"))
}

// ListAPIKeys returns key metadata. Secrets and digests are never included.
func (e *Engine) ListAPIKeys(ctx context.Context, accountID string) ([]APIKeyInfo, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	acct, err := e.loadAuthenticatedAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]APIKeyInfo, 0, len(acct.APIKeys))
	for _, k := range acct.APIKeys {
		out = append(out, APIKeyInfo{
			ID:         k.ID,
			Name:       k.Name,
			CreatedAt:  k.CreatedAt,
			LastUsedAt: k.LastUsedAt,
		})
	}
	return out, nil
}

// RevokeAPIKey deletes one key of accountID. Unknown ids yield
// ErrAPIKeyNotFound.
func (e *Engine) RevokeAPIKey(ctx context.Context, accountID, keyID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	if err := e.accounts.DeleteAPIKey(ctx, accountID, keyID); err != nil {
		if errors.Is(err, account.ErrAPIKeyNotFound) || errors.Is(err, account.ErrNotFound) {
			return newError(ErrAPIKeyNotFound, err)
		}
		return e.internal(ctx, "revoke api key", err)
	}
	e.metricInc(MetricAPIKeyRevoked)
	e.emitAudit(ctx, AuditAPIKeyRevoked, true, accountID, "", nil, func() map[string]string {
		return map[string]string{"key_id": keyID}
	})
	return nil
}

// AuthenticateAPIKey resolves a presented key to its account. Permissions come
// from the account's current role, so role changes apply immediately.
func (e *Engine) AuthenticateAPIKey(ctx context.Context, key string) (*AuthResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if !internal.LooksLikeAPIKey(e.config.APIKey.Prefix, key) {
		return nil, e.apiKeyAuthFailed(ctx, "malformed")
	}

	digest := internal.HashAPIKey(key)
	acct, stored, err := e.accounts.GetByAPIKeyHash(ctx, digest)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) || errors.Is(err, account.ErrAPIKeyNotFound) {
			return nil, e.apiKeyAuthFailed(ctx, "unknown")
		}
		return nil, e.internal(ctx, "lookup api key", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored.Hash), []byte(digest)) != 1 {
		return nil, e.apiKeyAuthFailed(ctx, "mismatch")
	}

	if err := e.accounts.TouchAPIKey(ctx, acct.ID, stored.ID, e.now()); err != nil {
		logging.FromContext(ctx, e.logger).WarnContext(ctx, "api key last-used update failed",
			"account_id", acct.ID, "key_id", stored.ID, "error", err)
	}

	e.metricInc(MetricAPIKeyAuthSuccess)
	return &AuthResult{
		AccountID:   acct.ID,
		Email:       acct.Email,
		Role:        acct.Role,
		Permissions: e.resolvePermissions(acct),
		APIKeyID:    stored.ID,
	}, nil
}

func (e *Engine) apiKeyAuthFailed(ctx context.Context, reason string) error {
	e.metricInc(MetricAPIKeyAuthFailure)
	e.emitAudit(ctx, AuditAPIKeyAuthFailed, false, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return newError(ErrInvalidCredentials, nil)
}

// loadAuthenticatedAccount loads the account behind a verified token. A
// vanished account makes the token itself invalid.
func (e *Engine) loadAuthenticatedAccount(ctx context.Context, accountID string) (*account.Account, error) {
	acct, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, newError(ErrInvalidToken, err)
		}
		return nil, e.internal(ctx, "load account", err)
	}
	return acct, nil
}
