package account

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a concurrency-safe in-process [Repository].
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
	byKey   map[string]string
	now     func() time.Time
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		byKey:   make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, acct *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[acct.Email]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byID[acct.ID]; exists {
		return ErrDuplicate
	}

	stored := acct.Clone()
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	for _, k := range stored.APIKeys {
		r.byKey[k.Hash] = stored.ID
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryRepository) GetByAPIKeyHash(_ context.Context, hash string) (*Account, APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[hash]
	if !ok {
		return nil, APIKey{}, ErrNotFound
	}
	a := r.byID[id]
	for _, k := range a.APIKeys {
		if k.Hash == hash {
			return a.Clone(), k, nil
		}
	}
	return nil, APIKey{}, ErrNotFound
}

// UpdateLoginState holds the write lock while fn runs, so concurrent failures for
// the same account observe each other's increments.
func (r *MemoryRepository) UpdateLoginState(_ context.Context, id string, fn LoginStateFunc) (LoginState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return LoginState{}, ErrNotFound
	}
	state := a.LoginState()
	if err := fn(&state); err != nil {
		return a.LoginState(), err
	}
	a.applyLoginState(state)
	a.UpdatedAt = r.now()
	return state, nil
}

func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) UpdateMFA(_ context.Context, id string, enabled bool, secret []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.MFAEnabled = enabled
	a.MFASecret = append([]byte(nil), secret...)
	if !enabled {
		a.MFASecret = nil
	}
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) AddAPIKey(_ context.Context, id string, key APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if _, exists := r.byKey[key.Hash]; exists {
		return ErrDuplicate
	}
	if _, exists := a.FindAPIKey(key.ID); exists {
		return ErrDuplicate
	}
	a.APIKeys = append(a.APIKeys, key)
	r.byKey[key.Hash] = id
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) DeleteAPIKey(_ context.Context, id, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	for i, k := range a.APIKeys {
		if k.ID == keyID {
			delete(r.byKey, k.Hash)
			a.APIKeys = append(a.APIKeys[:i], a.APIKeys[i+1:]...)
			a.UpdatedAt = r.now()
			return nil
		}
	}
	return ErrAPIKeyNotFound
}

func (r *MemoryRepository) TouchAPIKey(_ context.Context, id, keyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	for i := range a.APIKeys {
		if a.APIKeys[i].ID == keyID {
			if at.After(a.APIKeys[i].LastUsedAt) {
				a.APIKeys[i].LastUsedAt = at
			}
			return nil
		}
	}
	return ErrAPIKeyNotFound
}
