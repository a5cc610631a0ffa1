package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authkit "github.com/pacestacks/authkit"
	"github.com/pacestacks/authkit/middleware"
)

// Handlers binds the auth flows to HTTP. All session decisions are
// delegated to the engine; this layer only moves cookies and JSON.
type Handlers struct {
	engine *authkit.Engine
	log    *slog.Logger
}

// NewHandlers creates the handler set. A nil logger disables request
// logging.
func NewHandlers(engine *authkit.Engine, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handlers{engine: engine, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	tokens, identity, err := h.engine.Login(requestContext(r), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authkit.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.engine.SetSessionCookies(w, tokens)
	h.respondWithUser(w, r, http.StatusOK, "login successful", identity.ID)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register handles POST /auth/register. A successful registration starts a
// session immediately.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email, name and password are required")
		return
	}

	tokens, identity, err := h.engine.Register(requestContext(r), authkit.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     authkit.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, authkit.ErrAccountExists):
			respondError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, authkit.ErrRoleInvalid):
			respondError(w, http.StatusBadRequest, "invalid role")
		default:
			h.log.Error("register failed", "error", err)
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.engine.SetSessionCookies(w, tokens)
	h.respondWithUser(w, r, http.StatusCreated, "account created", identity.ID)
}

// Refresh handles GET /auth/refresh-token. It reads the refresh cookie,
// re-issues the access cookie, and, when rotation is on, replaces the
// refresh cookie too.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := authkit.ReadRefreshCookie(r)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "refresh token not found")
		return
	}

	tokens, _, err := h.engine.Refresh(requestContext(r), raw)
	if err != nil {
		if errors.Is(err, authkit.ErrRefreshInvalid) {
			h.engine.ClearSessionCookies(w)
			respondError(w, http.StatusUnauthorized, "refresh token not found")
			return
		}
		h.log.Error("refresh failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.engine.SetSessionCookies(w, tokens)
	respondOK(w, "token refreshed")
}

// Logout handles POST /auth/logout. It succeeds even when no session
// exists; the cookies are cleared regardless.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	raw := authkit.ReadRefreshCookie(r)

	if err := h.engine.Logout(requestContext(r), raw); err != nil {
		h.log.Error("logout failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.engine.ClearSessionCookies(w)
	respondOK(w, "logged out")
}

// LogoutAll handles POST /auth/logout-all for the authenticated user.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.engine.LogoutAll(requestContext(r), identity.ID); err != nil {
		h.log.Error("logout all failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.engine.ClearSessionCookies(w)
	respondOK(w, "logged out everywhere")
}

// Me handles GET /auth/me for the authenticated user.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	h.respondWithUser(w, r, http.StatusOK, "ok", identity.ID)
}

func (h *Handlers) respondWithUser(w http.ResponseWriter, r *http.Request, status int, message, userID string) {
	user, err := h.engine.User(requestContext(r), userID)
	if err != nil {
		h.log.Error("user lookup failed", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(w, status, APIResponse{
		Success: true,
		Message: message,
		User: &UserView{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  string(user.Role),
		},
	})
}
