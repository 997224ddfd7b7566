// Package internal contains helpers that are private to authcore: secure random
// identifiers and API key material.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - ids: sortable account identifiers
//   - limiters: lockout guard and account-creation throttle
//   - logging: slog construction and context plumbing
//   - metrics: lock-free counters and latency histograms
//   - rate: the fixed-window rate limiter
//   - httpapi: the HTTP surface of the Engine
//   - httpx: JSON request decoding and error responses
//   - security: configuration posture report
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
