// Package middleware exposes HTTP middleware built on authcore.Engine:
// authentication guards, permission checks, rate limiting and client context.
//
// # Guards
//
//   - [Guard] verifies a Bearer token in the given [Mode].
//   - [RequireJWTOnly] checks the token signature and claims only.
//   - [RequireStrict] also requires the bound session to be live.
//   - [RequireAPIKeyOrBearer] accepts an X-API-Key header as an alternative.
//
// Each guard injects the verified *authcore.AuthResult into the request
// context; read it back with [AuthResultFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// tokens, hash keys or touch storage itself.
package middleware
