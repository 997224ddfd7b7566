package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by Create when the email is already registered.
	ErrDuplicate = errors.New("account already exists")
	// ErrAPIKeyNotFound is returned when an API key id is unknown for the account.
	ErrAPIKeyNotFound = errors.New("api key not found")
)

// LoginStateFunc mutates a login state inside the repository's critical section.
// Returning an error aborts the update.
type LoginStateFunc func(state *LoginState) error

// Repository is the persistence contract for accounts.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByEmail matches the normalized (lower-cased) email.
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// GetByAPIKeyHash returns the owning account and the matching key.
	GetByAPIKeyHash(ctx context.Context, hash string) (*Account, APIKey, error)

	// UpdateLoginState applies fn atomically with respect to other login state
	// updates of the same account and returns the stored result.
	UpdateLoginState(ctx context.Context, id string, fn LoginStateFunc) (LoginState, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateMFA(ctx context.Context, id string, enabled bool, secret []byte) error

	AddAPIKey(ctx context.Context, id string, key APIKey) error
	DeleteAPIKey(ctx context.Context, id, keyID string) error
	TouchAPIKey(ctx context.Context, id, keyID string, at time.Time) error
}
