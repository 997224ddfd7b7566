// Package kvstore defines the small keyed-storage contract that the session store,
// rate limiter, refresh replay ledger, and TOTP replay ledger are written against.
//
// # Backends
//
//   - [Memory]: sharded in-process map with lazy expiry plus a background [Janitor]
//     sweep. Single-node semantics.
//   - [Redis]: go-redis backed store with native TTLs. Shared across nodes, so rate
//     limits and sessions stay consistent behind a load balancer.
//
// # Architecture boundaries
//
// Values are opaque byte slices. Callers own their key namespaces and encodings.
// Read-modify-write sequences go through [Store.Update], which is atomic per key on
// every backend.
//
// # What this package must NOT do
//
//   - Interpret stored values (no JSON, no domain types).
//   - Import authcore or any domain package.
package kvstore
