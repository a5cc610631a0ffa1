package authkit

import (
	"errors"

	"github.com/pacestacks/authkit/store"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are never distinguished, so callers
	// cannot be used as a user-enumeration oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers every access-token verification failure:
	// missing, malformed, tampered, or expired. The sub-reason is
	// intentionally not surfaced.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPermissionDenied is returned when an authenticated identity lacks
	// the role required by a guarded operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRefreshInvalid covers every refresh failure: token missing from the
	// store, expired, or owned by a user that no longer resolves.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrAccountExists is returned by Register for a duplicate email.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound is returned by user providers for an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleInvalid is returned by Register for a role outside the known set.
	ErrRoleInvalid = errors.New("invalid account role")
	// ErrEngineNotReady signals an Engine used before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable aliases the store backend's infrastructure error so
	// engine callers can branch on it without importing the store package.
	ErrStoreUnavailable = store.ErrUnavailable
)
