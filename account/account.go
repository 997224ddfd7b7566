package account

import (
	"slices"
	"time"
)

// Account is the persisted identity record.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	// Permissions are explicit grants on top of the role template.
	Permissions []string
	APIKeys     []APIKey
	MFAEnabled  bool
	MFASecret   []byte

	FailedAttempts int
	LockedUntil    time.Time
	LastLoginAt    time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKey is the stored half of an API key. The secret itself is never kept.
type APIKey struct {
	// ID is the last 8 characters of the secret, used for display and revocation.
	ID         string
	Prefix     string
	Hash       string
	Name       string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// LoginState is the lockout-relevant subset of an Account.
type LoginState struct {
	FailedAttempts int
	LockedUntil    time.Time
	LastLoginAt    time.Time
}

// LoginState returns a copy of the account's lockout fields.
func (a *Account) LoginState() LoginState {
	return LoginState{
		FailedAttempts: a.FailedAttempts,
		LockedUntil:    a.LockedUntil,
		LastLoginAt:    a.LastLoginAt,
	}
}

func (a *Account) applyLoginState(s LoginState) {
	a.FailedAttempts = s.FailedAttempts
	a.LockedUntil = s.LockedUntil
	a.LastLoginAt = s.LastLoginAt
}

// FindAPIKey returns the key with the given id.
func (a *Account) FindAPIKey(keyID string) (APIKey, bool) {
	for _, k := range a.APIKeys {
		if k.ID == keyID {
			return k, true
		}
	}
	return APIKey{}, false
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Permissions = slices.Clone(a.Permissions)
	out.APIKeys = slices.Clone(a.APIKeys)
	out.MFASecret = slices.Clone(a.MFASecret)
	return &out
}
