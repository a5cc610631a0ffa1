// Package httpclient is the client-side counterpart of the cookie session
// contract: an http.Client wrapper that reacts to a 401 by silently
// refreshing the session once and replaying the request. A second 401 in
// the same exchange is surfaced to the caller, so a dead session can never
// cause a retry loop.
package httpclient
