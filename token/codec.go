package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const refreshTokenBytes = 64

// Config holds the codec's signing material and access-token policy.
type Config struct {
	// Secret is the symmetric HS256 key used for both signing and
	// verification. Must be non-empty.
	Secret []byte
	// AccessTTL bounds the lifetime of issued access tokens.
	AccessTTL time.Duration
	Issuer    string
	Leeway    time.Duration
}

// AccessClaims is the payload of an access token: the user ID travels in the
// registered subject claim, the role in a private claim. Everything a
// downstream authorization check needs is in the token, so verification
// never touches storage.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies access tokens. A Codec is immutable and safe for
// concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// IssueAccess mints a signed access token for the given user ID and role,
// expiring AccessTTL from now.
func (c *Codec) IssueAccess(userID, role string) (string, error) {
	now := time.Now()

	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// ParseAccess verifies signature, expiry, and issuer and returns the claims.
// Callers must treat every failure uniformly as "unauthenticated"; the error
// detail is for logs, never for clients.
func (c *Codec) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// NewRefreshToken returns a fresh opaque refresh token: 64 random bytes,
// hex-encoded. The raw value goes to the client; only its hash is stored.
func NewRefreshToken() (string, error) {
	var raw [refreshTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// HashRefreshToken returns the hex SHA-256 digest of a raw refresh token.
// Deterministic: the same raw token always hashes to the same digest, which
// is what makes lookup-by-raw-token possible.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
