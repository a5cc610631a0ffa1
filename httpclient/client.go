package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// DefaultRefreshPath is the session refresh endpoint relative to the base
// URL.
const DefaultRefreshPath = "/auth/refresh-token"

// ErrSessionExpired is returned when the silent refresh itself is rejected.
// The original 401 response accompanies it so callers can still inspect it.
var ErrSessionExpired = errors.New("session expired")

// Options configures a Client.
type Options struct {
	// HTTPClient is the underlying transport. When nil, a fresh client is
	// used. A cookie jar is installed if the client has none; cookies are
	// the whole session mechanism here.
	HTTPClient *http.Client
	// RefreshPath overrides DefaultRefreshPath.
	RefreshPath string
	// OnSessionExpired runs after a failed refresh, before Do returns. A
	// browser app would redirect to the login page here.
	OnSessionExpired func()
}

// Client issues requests against an API that authenticates via session
// cookies. Safe for concurrent use; concurrent 401s may each trigger a
// refresh, which is harmless because refreshing is idempotent when rotation
// is off.
type Client struct {
	base        *url.URL
	http        *http.Client
	refreshPath string
	onExpired   func()
}

// New creates a Client rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("base url must be absolute")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}

	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	return &Client{
		base:        base,
		http:        hc,
		refreshPath: refreshPath,
		onExpired:   opts.OnSessionExpired,
	}, nil
}

// Do sends the request. On a 401 it refreshes the session once and replays
// the request; the replay's response is returned whatever its status. When
// the refresh fails, the ORIGINAL 401 response is returned together with
// ErrSessionExpired.
//
// Replaying needs the body again, so requests with a body must carry
// GetBody. Requests built with http.NewRequest from a byte reader get it
// for free.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if c.isRefreshRequest(req) {
		return resp, nil
	}

	if err := c.refresh(req.Context()); err != nil {
		if c.onExpired != nil {
			c.onExpired()
		}
		return resp, ErrSessionExpired
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return resp, err
	}

	drain(resp)

	return c.http.Do(retry)
}

// Get issues a GET against a path relative to the base URL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post issues a POST with the given body and content type.
func (c *Client) Post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// NewRequest builds a request against a path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, c.resolve(path), body)
}

func (c *Client) resolve(path string) string {
	ref := &url.URL{Path: path}
	if !strings.HasPrefix(path, "/") {
		ref.Path = "/" + path
	}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) isRefreshRequest(req *http.Request) bool {
	return req.URL.Path == c.refreshPath
}

func (c *Client) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(c.refreshPath), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	drain(resp)

	if resp.StatusCode != http.StatusOK {
		return ErrSessionExpired
	}

	return nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())

	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed: GetBody is nil")
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body

	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
