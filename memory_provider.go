package authkit

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryUserProvider is a map-backed UserProvider for tests, examples, and
// single-node deployments that keep accounts elsewhere. Emails are matched
// case-insensitively. Safe for concurrent use.
type MemoryUserProvider struct {
	mu      sync.RWMutex
	byID    map[string]UserRecord
	byEmail map[string]string
}

// NewMemoryUserProvider returns an empty provider.
func NewMemoryUserProvider() *MemoryUserProvider {
	return &MemoryUserProvider{
		byID:    make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

// GetUserByEmail implements UserProvider.
func (p *MemoryUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.byID[id], nil
}

// GetUserByID implements UserProvider.
func (p *MemoryUserProvider) GetUserByID(_ context.Context, id string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	user, ok := p.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

// CreateUser implements UserProvider. IDs are random UUIDs.
func (p *MemoryUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	key := normalizeEmail(input.Email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byEmail[key]; ok {
		return UserRecord{}, ErrAccountExists
	}

	user := UserRecord{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
	}
	p.byID[user.ID] = user
	p.byEmail[key] = user.ID

	return user, nil
}

// UpdateRole changes an existing user's role. Refreshing sessions pick up
// the new role on their next token refresh.
func (p *MemoryUserProvider) UpdateRole(_ context.Context, id string, role Role) error {
	if !role.Valid() {
		return ErrRoleInvalid
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	p.byID[id] = user

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
