// Package permission implements role-based access control over named
// permissions.
//
// # Model
//
// A role maps to exactly one permission template. Accounts may carry extra
// grants on top of their role. The wildcard permission "*" satisfies every
// check, and the admin role is treated as holding it regardless of its
// template.
//
// # Lifecycle
//
// Register permissions in a [Registry], define roles in a [RoleManager], then
// call [RoleManager.Freeze]. A frozen manager is read-only and safe for
// concurrent use.
//
// # What this package must NOT do
//
//   - Touch storage or tokens. Checks operate on values the caller already
//     verified.
package permission
