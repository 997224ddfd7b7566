// Package jwt issues and verifies the access and refresh tokens of an account.
//
// Access and refresh tokens are signed with distinct keys and carry a "typ"
// claim, so neither can stand in for the other. Every verification failure
// collapses to [ErrInvalidToken] or [ErrInvalidRefreshToken]; callers never
// learn which check failed.
package jwt
