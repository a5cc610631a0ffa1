// Package middleware exposes HTTP guards built on top of authkit.Engine
// token verification.
//
// # Guards
//
//   - [Authenticate] — verifies the access cookie and injects the identity
//     into the request context.
//   - [RequireRole] — role gate layered inside Authenticate.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — verification is delegated to
// Engine.VerifyAccess, and role comparison is the only decision made here.
package middleware
