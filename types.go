package authkit

import "context"

// Role is the coarse authorization level embedded in access tokens so that
// downstream role checks never need a database round trip.
type Role string

const (
	// RoleStaff is the default role for self-registered accounts.
	RoleStaff Role = "staff"
	// RoleAdmin grants access to admin-gated routes.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the minimal authenticated principal attached to requests by
// the middleware and carried inside access-token claims.
type Identity struct {
	ID   string
	Role Role
}

// SessionTokens is the pair returned by Login, Register, and Refresh.
// RefreshToken holds the raw (unhashed) token and must reach the client over
// an httpOnly cookie only; it is empty when Refresh leaves the existing
// refresh token in place (rotation disabled).
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

// UserRecord is the account record returned by [UserProvider]. PasswordHash
// is an argon2id PHC string; authkit never sees or stores plaintext passwords
// beyond the duration of a Login or Register call.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}

// CreateUserInput is the input for [UserProvider.CreateUser]. The provider
// assigns the new user's ID.
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Role         Role
}

// UserProvider is the interface callers implement to connect authkit to
// their user database. Lookups for unknown users return [ErrUserNotFound];
// CreateUser returns [ErrAccountExists] for a duplicate email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, id string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// RegisterRequest is the input for [Engine.Register]. Role defaults to
// [RoleStaff] when empty.
type RegisterRequest struct {
	Email    string
	Name     string
	Password string
	Role     Role
}
