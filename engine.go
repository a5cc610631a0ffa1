package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pacestacks/authkit/password"
	"github.com/pacestacks/authkit/store"
	"github.com/pacestacks/authkit/token"
)

// Engine is the session manager. It owns the token codec, the refresh token
// store, and the password hasher, and resolves accounts through the
// configured UserProvider. Engines are built once via Builder and are safe
// for concurrent use.
type Engine struct {
	config  Config
	codec   *token.Codec
	store   store.Store
	users   UserProvider
	hasher  *password.Hasher
	audit   *auditDispatcher
	metrics *Metrics
}

// Close stops the audit dispatcher after draining queued events. Safe to
// call multiple times.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.close()
}

// Metrics exposes the engine's counters, mainly for the Prometheus bridge.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Config returns a copy of the engine's effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) ready() error {
	if e == nil || e.codec == nil || e.store == nil || e.users == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Login verifies the credentials and starts a session. Unknown emails and
// wrong passwords both come back as ErrInvalidCredentials; the caller can
// never tell which accounts exist.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (SessionTokens, Identity, error) {
	if err := e.ready(); err != nil {
		return SessionTokens{}, Identity{}, err
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, auditEventLoginFailure, "", false, ErrInvalidCredentials, map[string]string{"email": email})
		if errors.Is(err, ErrUserNotFound) {
			return SessionTokens{}, Identity{}, ErrInvalidCredentials
		}
		return SessionTokens{}, Identity{}, fmt.Errorf("login: %w", err)
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, auditEventLoginFailure, user.ID, false, ErrInvalidCredentials, nil)
		return SessionTokens{}, Identity{}, ErrInvalidCredentials
	}

	tokens, err := e.startSession(ctx, user)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		return SessionTokens{}, Identity{}, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, auditEventLoginSuccess, user.ID, true, nil, nil)

	return tokens, Identity{ID: user.ID, Role: user.Role}, nil
}

// Register creates an account and immediately starts a session for it, so a
// fresh registration behaves like a login. An empty role defaults to staff.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (SessionTokens, Identity, error) {
	if err := e.ready(); err != nil {
		return SessionTokens{}, Identity{}, err
	}

	role := req.Role
	if role == "" {
		role = RoleStaff
	}
	if !role.Valid() {
		e.metrics.Inc(MetricRegisterFailure)
		return SessionTokens{}, Identity{}, ErrRoleInvalid
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metrics.Inc(MetricRegisterFailure)
		return SessionTokens{}, Identity{}, fmt.Errorf("register: %w", err)
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		e.metrics.Inc(MetricRegisterFailure)
		e.emit(ctx, auditEventRegisterFailure, "", false, err, map[string]string{"email": req.Email})
		if errors.Is(err, ErrAccountExists) {
			return SessionTokens{}, Identity{}, ErrAccountExists
		}
		return SessionTokens{}, Identity{}, fmt.Errorf("register: %w", err)
	}

	tokens, err := e.startSession(ctx, user)
	if err != nil {
		e.metrics.Inc(MetricRegisterFailure)
		return SessionTokens{}, Identity{}, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, auditEventRegisterSuccess, user.ID, true, nil, nil)

	return tokens, Identity{ID: user.ID, Role: user.Role}, nil
}

// Refresh exchanges a raw refresh token for a new access token. The owner's
// record is re-read so a role change since login lands in the new token.
// Every failure mode collapses to ErrRefreshInvalid.
//
// By default the presented refresh token stays valid and the returned
// SessionTokens carries an empty RefreshToken. With RotateRefreshOnUse a new
// refresh token is minted, the old one deleted, and both are returned.
func (e *Engine) Refresh(ctx context.Context, rawRefresh string) (SessionTokens, Identity, error) {
	if err := e.ready(); err != nil {
		return SessionTokens{}, Identity{}, err
	}
	if rawRefresh == "" {
		e.metrics.Inc(MetricRefreshFailure)
		return SessionTokens{}, Identity{}, ErrRefreshInvalid
	}

	hash := token.HashRefreshToken(rawRefresh)

	rec, err := e.store.FindByHash(ctx, hash)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, store.ErrNotFound) {
			e.emit(ctx, auditEventRefreshInvalid, "", false, ErrRefreshInvalid, nil)
			return SessionTokens{}, Identity{}, ErrRefreshInvalid
		}
		return SessionTokens{}, Identity{}, fmt.Errorf("refresh: %w", err)
	}

	if rec.Expired(time.Now()) {
		// Best effort: the backend's own TTL will eventually reap it anyway.
		_ = e.store.Delete(ctx, hash)
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, auditEventRefreshInvalid, rec.UserID, false, ErrRefreshInvalid, nil)
		return SessionTokens{}, Identity{}, ErrRefreshInvalid
	}

	user, err := e.users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emit(ctx, auditEventRefreshInvalid, rec.UserID, false, ErrRefreshInvalid, nil)
		return SessionTokens{}, Identity{}, ErrRefreshInvalid
	}

	access, err := e.codec.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return SessionTokens{}, Identity{}, fmt.Errorf("refresh: %w", err)
	}

	tokens := SessionTokens{AccessToken: access}

	if e.config.Security.RotateRefreshOnUse {
		rotated, err := e.saveRefresh(ctx, user.ID)
		if err != nil {
			e.metrics.Inc(MetricRefreshFailure)
			return SessionTokens{}, Identity{}, err
		}
		if err := e.store.Delete(ctx, hash); err != nil {
			return SessionTokens{}, Identity{}, fmt.Errorf("refresh: %w", err)
		}
		e.metrics.Inc(MetricSessionInvalidated)
		tokens.RefreshToken = rotated
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emit(ctx, auditEventRefreshSuccess, user.ID, true, nil, nil)

	return tokens, Identity{ID: user.ID, Role: user.Role}, nil
}

// Logout invalidates the presented refresh token. An unknown or empty token
// is not an error: the session is gone either way.
func (e *Engine) Logout(ctx context.Context, rawRefresh string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if rawRefresh == "" {
		return nil
	}

	if err := e.store.Delete(ctx, token.HashRefreshToken(rawRefresh)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emit(ctx, auditEventLogout, "", true, nil, nil)

	return nil
}

// LogoutAll invalidates every refresh token the user holds, across all
// devices. Their outstanding access tokens remain valid until expiry.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	if err := e.store.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	e.metrics.Inc(MetricLogoutAll)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emit(ctx, auditEventLogoutAll, userID, true, nil, nil)

	return nil
}

// VerifyAccess checks the access token offline and returns the identity it
// carries. All failures map to ErrUnauthorized; the caller learns nothing
// about which check failed.
func (e *Engine) VerifyAccess(accessToken string) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}

	claims, err := e.codec.ParseAccess(accessToken)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	return Identity{ID: claims.Subject, Role: Role(claims.Role)}, nil
}

// User resolves the current record behind an identity, for profile reads.
func (e *Engine) User(ctx context.Context, userID string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}
	return e.users.GetUserByID(ctx, userID)
}

// startSession mints the access and refresh pair and persists the refresh
// record. Each call adds an independent session; logins from other devices
// are untouched.
func (e *Engine) startSession(ctx context.Context, user UserRecord) (SessionTokens, error) {
	access, err := e.codec.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return SessionTokens{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := e.saveRefresh(ctx, user.ID)
	if err != nil {
		return SessionTokens{}, err
	}

	return SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) saveRefresh(ctx context.Context, userID string) (string, error) {
	raw, err := token.NewRefreshToken()
	if err != nil {
		return "", fmt.Errorf("mint refresh: %w", err)
	}

	rec := store.Record{
		TokenHash: token.HashRefreshToken(raw),
		UserID:    userID,
		ExpiresAt: time.Now().Add(e.config.JWT.RefreshTTL),
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save refresh: %w", err)
	}

	e.metrics.Inc(MetricSessionCreated)

	return raw, nil
}

func (e *Engine) emit(ctx context.Context, eventType, userID string, success bool, opErr error, meta map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if meta == nil {
			meta = map[string]string{}
		}
		meta["user_agent"] = ua
	}
	event.Metadata = meta

	e.audit.dispatch(event)
}
