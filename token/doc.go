// Package token implements the two token primitives of authkit: signed,
// expiring HS256 access tokens, and opaque high-entropy refresh tokens that
// are only ever persisted as an unsalted SHA-256 digest.
//
// The unsalted digest is deliberate and safe here because the input is a
// 64-byte random value, not a password; it must not be copied for credential
// hashing, which uses the password package.
package token
