// Package account defines the persisted account model and the repository contract
// the authentication engine reads and writes through.
//
// # Architecture boundaries
//
// The engine never touches storage directly: credential hashes, lockout counters,
// API keys and MFA state are all read and written through [Repository]. Lockout
// transitions run inside [Repository.UpdateLoginState], which gives every
// implementation a per-account critical section.
//
// [MemoryRepository] is the in-process implementation used by tests and the
// development server; the postgres sub-package provides the durable one.
//
// # What this package must NOT do
//
//   - Hash passwords, mint tokens or evaluate permissions.
//   - Store API key secrets (only their SHA-256 hashes).
package account
