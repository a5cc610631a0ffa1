package authkit

import (
	"errors"
	"net/http"
	"time"
)

// Config defines the full engine configuration. Instances are set up during
// initialization, validated by Build, and treated as immutable afterwards.
// Nothing in authkit reads ambient process state: every secret and TTL flows
// through this struct.
type Config struct {
	JWT      JWTConfig
	Cookie   CookieConfig
	Security SecurityConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig controls access-token issuance and verification.
type JWTConfig struct {
	// AccessSecret is the symmetric HS256 signing key. An engine cannot be
	// built without it; a deployment missing the secret must fail at startup,
	// not at the first request.
	AccessSecret []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Issuer       string
	Leeway       time.Duration
}

// CookieConfig controls the attributes of the two session cookies. Names are
// fixed (see AccessCookieName, RefreshCookieName) because they are part of
// the wire contract with clients.
type CookieConfig struct {
	Path     string
	Domain   string
	SameSite http.SameSite
	// Secure should be true in production. It defaults to false so local
	// plain-HTTP development keeps working.
	Secure bool
}

// SecurityConfig groups hardening toggles.
type SecurityConfig struct {
	// RotateRefreshOnUse issues a fresh refresh token on every successful
	// refresh and deletes the presented one. Off by default: a refresh then
	// only re-sets the access cookie and the refresh token stays valid until
	// its fixed expiry.
	RotateRefreshOnUse bool
}

// PasswordConfig holds argon2id parameters for credential hashing.
type PasswordConfig struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: 30-minute access tokens,
// 30-day refresh tokens, lax same-site cookies on "/", and moderate argon2id
// parameters. The access secret must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "authkit",
			Leeway:     0,
		},
		Cookie: CookieConfig{
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			Secure:   false,
		},
		Security: SecurityConfig{
			RotateRefreshOnUse: false,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for internal consistency. A missing
// access secret is a hard error: it is a deployment precondition, never a
// runtime condition to limp through.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return errors.New("JWT AccessSecret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must not be shorter than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	if c.Cookie.Path == "" {
		return errors.New("Cookie Path must not be empty")
	}
	switch c.Cookie.SameSite {
	case http.SameSiteLaxMode, http.SameSiteStrictMode, http.SameSiteDefaultMode:
	case http.SameSiteNoneMode:
		if !c.Cookie.Secure {
			return errors.New("SameSite=None requires Secure cookies")
		}
	default:
		return errors.New("unsupported Cookie SameSite policy")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be at least 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be at least 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be at least 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be at least 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be at least 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
