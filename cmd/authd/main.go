// Command authd runs the auth API as a standalone service: cookie-based
// login, refresh, and logout over chi, with the refresh token store backend
// selected by environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	authkit "github.com/pacestacks/authkit"
	"github.com/pacestacks/authkit/httpapi"
	authprom "github.com/pacestacks/authkit/metrics/prometheus"
	"github.com/pacestacks/authkit/store"
	"github.com/pacestacks/authkit/store/mongostore"
	"github.com/pacestacks/authkit/store/pgstore"
	"github.com/pacestacks/authkit/store/redisstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := authkit.LoadEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	users := authkit.NewMemoryUserProvider()

	builder := authkit.New().
		WithConfig(cfg).
		WithStore(st).
		WithUserProvider(users).
		WithMetricsEnabled(true)

	if os.Getenv("AUTH_AUDIT_LOG") == "true" {
		builder = builder.WithAuditSink(authkit.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := seedAdmin(ctx, engine, log); err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(chimw.Logger)
	router.Mount("/", httpapi.NewRouter(engine, log))

	metricsHandler, err := authprom.Handler(engine)
	if err != nil {
		return err
	}
	httpapi.MountMetrics(router, metricsHandler)

	addr := os.Getenv("AUTH_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openStore selects the refresh token backend from AUTH_STORE: redis
// (default), mongo, or postgres.
func openStore(ctx context.Context) (store.Store, func(), error) {
	noop := func() {}

	switch backend := os.Getenv("AUTH_STORE"); backend {
	case "", "redis":
		opts, err := redis.ParseURL(envOr("REDIS_URL", "redis://localhost:6379/0"))
		if err != nil {
			return nil, noop, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return redisstore.NewStore(client, ""), func() { _ = client.Close() }, nil

	case "mongo":
		st, err := mongostore.New(ctx,
			envOr("MONGO_URL", "mongodb://localhost:27017"),
			envOr("MONGO_DB", "authkit"), "")
		if err != nil {
			return nil, noop, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, noop, err
		}
		return st, func() { _ = st.Close(context.Background()) }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, envOr("DATABASE_URL", "postgres://localhost:5432/authkit"))
		if err != nil {
			return nil, noop, fmt.Errorf("postgres connect: %w", err)
		}
		st := pgstore.NewStore(pool)
		if err := st.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return st, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown AUTH_STORE backend: %q", backend)
	}
}

// seedAdmin creates the bootstrap admin account when AUTH_ADMIN_EMAIL and
// AUTH_ADMIN_PASSWORD are set. The memory provider starts empty, so a fresh
// deployment has no way to log in without this.
func seedAdmin(ctx context.Context, engine *authkit.Engine, log *slog.Logger) error {
	email := os.Getenv("AUTH_ADMIN_EMAIL")
	pass := os.Getenv("AUTH_ADMIN_PASSWORD")
	if email == "" || pass == "" {
		log.Warn("no admin seed configured, starting with zero accounts")
		return nil
	}

	tokens, identity, err := engine.Register(ctx, authkit.RegisterRequest{
		Email:    email,
		Name:     "Administrator",
		Password: pass,
		Role:     authkit.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Registration opened a session nobody holds; drop it again.
	if tokens.RefreshToken != "" {
		_ = engine.Logout(ctx, tokens.RefreshToken)
	}

	log.Info("admin account seeded", "user_id", identity.ID)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
