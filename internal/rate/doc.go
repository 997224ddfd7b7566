// Package rate implements the single fixed-window rate limiter used by every
// throttled path (login, registration, refresh, API traffic, TOTP attempts).
//
// # Window semantics
//
// A counter is created on the first hit for an identifier and expires after the
// window; hits are admitted while the counter is <= the limit. Rejected callers are
// told how long the current window still has to run.
//
// Because windows are fixed, a client can be admitted up to twice the limit across a
// window boundary (a full budget at the end of one window and another at the start
// of the next). This is a known property of the algorithm: the limiter deters
// abuse, it is not a billing quota.
//
// Keys are namespaced "rl:<limiter>:<identifier>".
//
// # What this package must NOT do
//
//   - Decide what to do about a rejection (callers map it to their own errors).
//   - Be imported outside the authcore module.
package rate
