package authkit

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names read by LoadEnv.
const (
	EnvAccessSecret = "JWT_ACCESS_SECRET"
	EnvAccessTTL    = "AUTH_ACCESS_TTL"
	EnvRefreshTTL   = "AUTH_REFRESH_TTL"
	EnvIssuer       = "AUTH_ISSUER"
	EnvCookieSecure = "AUTH_COOKIE_SECURE"
	EnvRotateOnUse  = "AUTH_ROTATE_REFRESH"
	EnvAppEnv       = "APP_ENV"
)

// LoadEnv builds a Config from the process environment, loading a .env file
// first when one is present (missing .env is not an error). It starts from
// DefaultConfig and overrides from the variables above.
//
// JWT_ACCESS_SECRET is required: returning an error here is what keeps a
// misconfigured server from starting at all.
func LoadEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	secret := os.Getenv(EnvAccessSecret)
	if secret == "" {
		return Config{}, fmt.Errorf("missing environment variable: %s", EnvAccessSecret)
	}
	cfg.JWT.AccessSecret = []byte(secret)

	if v := os.Getenv(EnvAccessTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvAccessTTL, err)
		}
		cfg.JWT.AccessTTL = d
	}
	if v := os.Getenv(EnvRefreshTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvRefreshTTL, err)
		}
		cfg.JWT.RefreshTTL = d
	}
	if v := os.Getenv(EnvIssuer); v != "" {
		cfg.JWT.Issuer = v
	}

	// Secure cookies: explicit flag wins, otherwise production mode implies it.
	if v := os.Getenv(EnvCookieSecure); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvCookieSecure, err)
		}
		cfg.Cookie.Secure = b
	} else if os.Getenv(EnvAppEnv) == "production" {
		cfg.Cookie.Secure = true
	}

	if v := os.Getenv(EnvRotateOnUse); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvRotateOnUse, err)
		}
		cfg.Security.RotateRefreshOnUse = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
