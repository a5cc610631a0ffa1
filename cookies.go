package authkit

import (
	"net/http"
	"time"
)

// Cookie names are part of the wire contract with browser clients and are
// deliberately not configurable.
const (
	// AccessCookieName carries the signed access token.
	AccessCookieName = "access_token"
	// RefreshCookieName carries the opaque refresh token.
	RefreshCookieName = "refresh_token"
)

// SetSessionCookies writes both session cookies on the response. When the
// tokens carry no refresh token (a non-rotating refresh), only the access
// cookie is written and the existing refresh cookie is left untouched.
func (e *Engine) SetSessionCookies(w http.ResponseWriter, tokens SessionTokens) {
	e.SetAccessCookie(w, tokens.AccessToken)
	if tokens.RefreshToken != "" {
		http.SetCookie(w, e.sessionCookie(RefreshCookieName, tokens.RefreshToken, e.config.JWT.RefreshTTL))
	}
}

// SetAccessCookie writes only the access cookie.
func (e *Engine) SetAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, e.sessionCookie(AccessCookieName, accessToken, e.config.JWT.AccessTTL))
}

// ClearSessionCookies expires both session cookies. Attributes must match
// the ones used when setting, or browsers keep the originals around.
func (e *Engine) ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, e.expiredCookie(AccessCookieName))
	http.SetCookie(w, e.expiredCookie(RefreshCookieName))
}

func (e *Engine) sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

func (e *Engine) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

// ReadAccessCookie extracts the access token from the request. The empty
// string means the cookie is absent.
func ReadAccessCookie(r *http.Request) string {
	return cookieValue(r, AccessCookieName)
}

// ReadRefreshCookie extracts the refresh token from the request.
func ReadRefreshCookie(r *http.Request) string {
	return cookieValue(r, RefreshCookieName)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
