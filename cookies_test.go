package authkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSetSessionCookiesAttributes(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	rec := httptest.NewRecorder()
	engine.SetSessionCookies(rec, SessionTokens{
		AccessToken:  "access-value",
		RefreshToken: "refresh-value",
	})

	access := cookieByName(t, rec, AccessCookieName)
	if access == nil {
		t.Fatal("access cookie missing")
	}
	refresh := cookieByName(t, rec, RefreshCookieName)
	if refresh == nil {
		t.Fatal("refresh cookie missing")
	}

	for _, c := range []*http.Cookie{access, refresh} {
		if !c.HttpOnly {
			t.Fatalf("%s must be httpOnly", c.Name)
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Fatalf("%s must be SameSite=Lax", c.Name)
		}
		if c.Path != "/" {
			t.Fatalf("%s must be scoped to /", c.Name)
		}
		if c.Secure {
			t.Fatalf("%s must not be secure outside production config", c.Name)
		}
	}

	if access.MaxAge != int(30*time.Minute/time.Second) {
		t.Fatalf("access MaxAge = %d, want 1800", access.MaxAge)
	}
	if refresh.MaxAge != int(30*24*time.Hour/time.Second) {
		t.Fatalf("refresh MaxAge = %d, want 2592000", refresh.MaxAge)
	}
}

func TestSetSessionCookiesSkipsEmptyRefresh(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	rec := httptest.NewRecorder()
	engine.SetSessionCookies(rec, SessionTokens{AccessToken: "access-value"})

	if cookieByName(t, rec, AccessCookieName) == nil {
		t.Fatal("access cookie missing")
	}
	if cookieByName(t, rec, RefreshCookieName) != nil {
		t.Fatal("refresh cookie must not be touched when rotation is off")
	}
}

func TestSecureFlagFollowsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cookie.Secure = true

	engine, _ := newTestEngine(t, cfg)

	rec := httptest.NewRecorder()
	engine.SetAccessCookie(rec, "access-value")

	access := cookieByName(t, rec, AccessCookieName)
	if access == nil || !access.Secure {
		t.Fatal("expected secure access cookie")
	}
}

func TestClearSessionCookies(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	rec := httptest.NewRecorder()
	engine.ClearSessionCookies(rec)

	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := cookieByName(t, rec, name)
		if c == nil {
			t.Fatalf("%s expiry cookie missing", name)
		}
		if c.MaxAge >= 0 {
			t.Fatalf("%s must carry a negative MaxAge, got %d", name, c.MaxAge)
		}
		if c.Value != "" {
			t.Fatalf("%s must be emptied, got %q", name, c.Value)
		}
		if c.Path != "/" || !c.HttpOnly {
			t.Fatalf("%s expiry attributes must match the originals", name)
		}
	}
}

func TestReadCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "a"})
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "r"})

	if got := ReadAccessCookie(req); got != "a" {
		t.Fatalf("ReadAccessCookie = %q, want a", got)
	}
	if got := ReadRefreshCookie(req); got != "r" {
		t.Fatalf("ReadRefreshCookie = %q, want r", got)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ReadAccessCookie(bare); got != "" {
		t.Fatalf("expected empty value for absent cookie, got %q", got)
	}
}
