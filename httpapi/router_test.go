package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authkit "github.com/pacestacks/authkit"
)

func newTestServer(t *testing.T, mutate func(*authkit.Config)) (*httptest.Server, *http.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := authkit.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithUserProvider(authkit.NewMemoryUserProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(NewRouter(engine, nil))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}

	return srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()

	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func register(t *testing.T, client *http.Client, baseURL, email string) APIResponse {
	t.Helper()

	resp := postJSON(t, client, baseURL+"/auth/register",
		`{"email":"`+email+`","name":"Test","password":"sufficiently-long-password"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func serverCookies(t *testing.T, client *http.Client, rawURL string) map[string]string {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	out := map[string]string{}
	for _, c := range client.Jar.Cookies(u) {
		out[c.Name] = c.Value
	}
	return out
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv, client := newTestServer(t, nil)

	body := register(t, client, srv.URL, "alice@example.com")
	if !body.Success || body.User == nil {
		t.Fatalf("unexpected register body: %+v", body)
	}
	if body.User.Role != "staff" {
		t.Fatalf("default role = %q, want staff", body.User.Role)
	}

	cookies := serverCookies(t, client, srv.URL)
	if cookies[authkit.AccessCookieName] == "" || cookies[authkit.RefreshCookieName] == "" {
		t.Fatal("registration must set both session cookies")
	}

	resp, err := client.Get(srv.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	me := decodeBody(t, resp)
	if me.User == nil || me.User.Email != "alice@example.com" {
		t.Fatalf("unexpected me body: %+v", me)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, client := newTestServer(t, nil)
	register(t, client, srv.URL, "alice@example.com")

	resp := postJSON(t, client, srv.URL+"/auth/login",
		`{"email":"alice@example.com","password":"wrong-password-here"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body.Success {
		t.Fatal("expected success=false")
	}
}

func TestMeWithoutSession(t *testing.T) {
	srv, client := newTestServer(t, nil)

	resp, err := client.Get(srv.URL + "/auth/me")
	if err != nil {
		t.Fatalf("GET /auth/me failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body.Message != "authentication required" {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestRefreshReissuesAccessCookie(t *testing.T) {
	srv, client := newTestServer(t, nil)
	register(t, client, srv.URL, "alice@example.com")

	before := serverCookies(t, client, srv.URL)

	resp, err := client.Get(srv.URL + "/auth/refresh-token")
	if err != nil {
		t.Fatalf("GET /auth/refresh-token failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	after := serverCookies(t, client, srv.URL)
	if after[authkit.AccessCookieName] == before[authkit.AccessCookieName] {
		// Access tokens embed issue time to the second, so a same-second
		// reissue can legitimately collide; the cookie must at least exist.
		if after[authkit.AccessCookieName] == "" {
			t.Fatal("access cookie missing after refresh")
		}
	}
	if after[authkit.RefreshCookieName] != before[authkit.RefreshCookieName] {
		t.Fatal("refresh cookie must be untouched when rotation is off")
	}
}

func TestRefreshRotationReplacesRefreshCookie(t *testing.T) {
	srv, client := newTestServer(t, func(cfg *authkit.Config) {
		cfg.Security.RotateRefreshOnUse = true
	})
	register(t, client, srv.URL, "alice@example.com")

	before := serverCookies(t, client, srv.URL)

	resp, err := client.Get(srv.URL + "/auth/refresh-token")
	if err != nil {
		t.Fatalf("GET /auth/refresh-token failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	after := serverCookies(t, client, srv.URL)
	if after[authkit.RefreshCookieName] == before[authkit.RefreshCookieName] {
		t.Fatal("rotation must replace the refresh cookie")
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	srv, client := newTestServer(t, nil)

	resp, err := client.Get(srv.URL + "/auth/refresh-token")
	if err != nil {
		t.Fatalf("GET /auth/refresh-token failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body.Message != "refresh token not found" {
		t.Fatalf("message = %q", body.Message)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv, client := newTestServer(t, nil)
	register(t, client, srv.URL, "alice@example.com")

	resp := postJSON(t, client, srv.URL+"/auth/logout", "{}")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	cookies := serverCookies(t, client, srv.URL)
	if len(cookies) != 0 {
		t.Fatalf("expected cleared cookies, still have %v", cookies)
	}

	// The refresh token is dead server-side too, not only in the jar.
	resp, err := client.Get(srv.URL + "/auth/refresh-token")
	if err != nil {
		t.Fatalf("GET /auth/refresh-token failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutAllAcrossClients(t *testing.T) {
	srv, first := newTestServer(t, nil)
	register(t, first, srv.URL, "alice@example.com")

	jar, _ := cookiejar.New(nil)
	second := &http.Client{Jar: jar}
	resp := postJSON(t, second, srv.URL+"/auth/login",
		`{"email":"alice@example.com","password":"sufficiently-long-password"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp = postJSON(t, first, srv.URL+"/auth/logout-all", "{}")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout-all status = %d, want 200", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	// The second device's refresh token no longer works.
	resp, err := second.Get(srv.URL + "/auth/refresh-token")
	if err != nil {
		t.Fatalf("GET /auth/refresh-token failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("second device refresh = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterDuplicateConflict(t *testing.T) {
	srv, client := newTestServer(t, nil)
	register(t, client, srv.URL, "alice@example.com")

	resp := postJSON(t, client, srv.URL+"/auth/register",
		`{"email":"alice@example.com","name":"Again","password":"sufficiently-long-password"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMalformedBody(t *testing.T) {
	srv, client := newTestServer(t, nil)

	resp := postJSON(t, client, srv.URL+"/auth/login", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}
