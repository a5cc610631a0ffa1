// Package password hashes credentials with argon2id and serializes them in
// the PHC string format, so hashes stay self-describing and parameters can
// be raised later without invalidating stored credentials.
package password
