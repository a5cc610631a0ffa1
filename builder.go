package authkit

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pacestacks/authkit/password"
	"github.com/pacestacks/authkit/store"
	"github.com/pacestacks/authkit/store/redisstore"
	"github.com/pacestacks/authkit/token"
)

// Builder assembles an Engine. Builders are single-use: Build consumes the
// builder and a second call fails.
type Builder struct {
	config Config

	store        store.Store
	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration. The config is cloned, so
// later mutation of the caller's struct does not reach the engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the refresh token store backend.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis is shorthand for WithStore over a Redis-backed store with the
// default key prefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.store = redisstore.NewStore(client, "")
	return b
}

// WithUserProvider sets the account lookup backend. The engine never stores
// users itself; every login and refresh resolves accounts through this.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit destination and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Engine. The returned
// engine owns an audit dispatcher goroutine when auditing is enabled;
// callers should Close it on shutdown.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("refresh token store required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	codec, err := token.NewCodec(token.Config{
		Secret:    cfg.JWT.AccessSecret,
		AccessTTL: cfg.JWT.AccessTTL,
		Issuer:    cfg.JWT.Issuer,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		store:   b.store,
		users:   b.userProvider,
		hasher:  hasher,
		metrics: NewMetrics(cfg.Metrics),
	}

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		engine.audit = newAuditDispatcher(sink, cfg.Audit.BufferSize, 2*time.Second)
	}

	b.built = true

	return engine, nil
}
