// Package limiters holds the authentication-specific throttles built on top of
// internal/rate and the account login state.
//
// # Limiters
//
//   - [LockoutGuard] decides lockout transitions on an account.LoginState. It is
//     pure: callers run it inside account.Repository.UpdateLoginState so each
//     transition is atomic per account.
//   - [AccountCreationLimiter] throttles sign-ups per email and per client IP.
//
// # What this package must NOT do
//
//   - Persist anything itself. Storage is the repository's or the rate store's job.
//   - Import authcore or any sibling internal package except internal/rate.
package limiters
