// Package session provides session persistence over the kvstore contract with a
// compact binary session encoding.
//
// # Lifetime
//
// A session stays valid while it is validated at least once every MaxIdle
// (24h by default). Validation bumps LastAccess to max(LastAccess, now) inside
// an atomic read-modify-write, so concurrent validations never move it
// backwards. Expiry is lazy; memory backends are swept by the kvstore janitor.
//
// # Binary encoding
//
// Sessions are stored as a versioned, length-prefixed binary record. New
// versions may add fields but never reinterpret old ones.
//
// # What this package must NOT do
//
//   - Import authcore, jwt, or permission (no upward imports).
//   - Perform authorization decisions.
//   - Store secrets in [Session] fields.
package session
