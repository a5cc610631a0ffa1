package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	authkit "github.com/pacestacks/authkit"
	"github.com/pacestacks/authkit/middleware"
)

// NewRouter mounts the auth endpoints under /auth and returns the router
// for further mounting by the host application.
func NewRouter(engine *authkit.Engine, log *slog.Logger) chi.Router {
	h := NewHandlers(engine, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Get("/refresh-token", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(engine))
			r.Get("/me", h.Me)
			r.Post("/logout-all", h.LogoutAll)
		})
	})

	return r
}

// MountMetrics exposes the engine's counters in Prometheus format at
// /metrics. Separate from NewRouter so deployments already running their own
// scrape endpoint can skip it.
func MountMetrics(r chi.Router, metricsHandler http.Handler) {
	r.Method(http.MethodGet, "/metrics", metricsHandler)
}

// requestContext enriches the request context with the caller's IP and
// user agent so engine audit events carry them.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = authkit.WithClientIP(ctx, ip)

	if ua := r.UserAgent(); ua != "" {
		ctx = authkit.WithUserAgent(ctx, ua)
	}

	return ctx
}
