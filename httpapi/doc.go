// Package httpapi mounts the cookie-based auth flows on a chi router:
// login, register, refresh, logout, and the current-user endpoint. It owns
// the HTTP surface only; session decisions live in authkit.Engine.
package httpapi
