package password

import (
	"context"
	"sync"
)

// dummyPassword feeds DummyVerify. Its value is irrelevant.
const dummyPassword = "timing-equalizer"

// Vault composes hashing, strength policy and the worker pool.
type Vault struct {
	hasher *Argon2
	policy *Policy
	pool   *Pool

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewVault wires a vault. A nil pool gets a GOMAXPROCS-sized one.
func NewVault(hasher *Argon2, policy *Policy, pool *Pool) *Vault {
	if policy == nil {
		policy = NewPolicy(DefaultPolicyConfig())
	}
	if pool == nil {
		pool = NewPool(0)
	}
	return &Vault{hasher: hasher, policy: policy, pool: pool}
}

// Hash runs Argon2 on the pool.
func (v *Vault) Hash(ctx context.Context, password string) (string, error) {
	return run(ctx, v.pool, func() (string, error) {
		return v.hasher.Hash(password)
	})
}

// Verify runs Argon2 verification on the pool.
func (v *Vault) Verify(ctx context.Context, password, hash string) (bool, error) {
	return run(ctx, v.pool, func() (bool, error) {
		return v.hasher.Verify(password, hash)
	})
}

// DummyVerify burns the same work as a real Verify. Callers use it when the
// account does not exist so both paths take comparable time.
func (v *Vault) DummyVerify(ctx context.Context, password string) error {
	v.dummyOnce.Do(func() {
		v.dummyHash, v.dummyErr = v.hasher.Hash(dummyPassword)
	})
	if v.dummyErr != nil {
		return v.dummyErr
	}
	if len(password) > v.hasher.config.MaxPasswordBytes {
		password = password[:v.hasher.config.MaxPasswordBytes]
	}
	_, err := v.Verify(ctx, password, v.dummyHash)
	return err
}

// ValidateStrength applies the policy.
func (v *Vault) ValidateStrength(password string) StrengthResult {
	return v.policy.Validate(password)
}

// NeedsUpgrade reports whether hash should be recomputed with current parameters.
func (v *Vault) NeedsUpgrade(hash string) bool {
	up, err := v.hasher.NeedsUpgrade(hash)
	return err == nil && up
}

// Close drains the pool.
func (v *Vault) Close() {
	v.pool.Close()
}
