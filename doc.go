// Package authcore is an authentication, session and access-control core:
// Argon2id password storage, short-lived JWT access tokens with single-use
// refresh tokens, server-side sessions with idle expiry, per-account lockout,
// sliding-window rate limits, role-based permissions and account API keys.
//
// Engine methods are safe for concurrent use once [Builder.Build] has returned.
//
// # Architecture boundaries
//
// authcore is the public surface: [Engine], [Builder], [Config] and the value
// types returned by Engine methods. Sessions, counters and replay markers live
// in a [kvstore.Store] (in-process or Redis); accounts live behind an
// [account.Repository] (in-process or PostgreSQL). Everything else is
// coordination and stays under internal/.
//
// # Errors
//
// Operations return *[Error] values whose Kind is one of the exported
// sentinels, so callers match with errors.Is. [ErrorCode] gives the stable
// machine code used on the wire. Internal failures never carry their cause to
// the caller; it is logged instead.
//
// # Hot path
//
// [Engine.Validate] verifies an access token from its claims alone and never
// touches a store. [Engine.ValidateWithSession] adds one store round-trip to
// check and touch the bound session.
package authcore
