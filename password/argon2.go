package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKiB   uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPasswordLen        = 8
	phcAlgorithm          = "argon2id"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed as an
// argon2id PHC string.
var ErrMalformedHash = errors.New("password: malformed hash")

// Params are the argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (p Params) validate() error {
	switch {
	case p.Memory < minMemoryKiB:
		return errors.New("password: memory must be >= 8192 KiB")
	case p.Time < 1:
		return errors.New("password: time must be >= 1")
	case p.Parallelism < 1:
		return errors.New("password: parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return errors.New("password: salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return errors.New("password: key length must be >= 16")
	}
	return nil
}

// Hasher derives and verifies argon2id hashes with a fixed parameter set.
// It is stateless after construction and safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates the parameters and returns a Hasher.
func NewHasher(params Params) (*Hasher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: params}, nil
}

// Hash derives a PHC-encoded argon2id hash from the plaintext. The input is
// hashed byte-for-byte as provided, without Unicode normalization.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) < minPasswordLen {
		return "", errors.New("password: must be at least 8 bytes")
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt,
		h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the encoded hash. The comparison
// runs in constant time over the derived keys; parse failures are errors,
// not mismatches, so callers can distinguish corrupt records from wrong
// passwords.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	memory, time, parallelism, salt, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), salt,
		time, memory, parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsRehash reports whether the stored hash was derived with parameters
// weaker than the Hasher's current ones.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	memory, time, parallelism, _, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return memory < h.params.Memory ||
		time < h.params.Time ||
		parallelism < h.params.Parallelism ||
		uint32(len(key)) != h.params.KeyLength, nil
}

func decodePHC(encoded string) (memory, time uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcAlgorithm {
		err = ErrMalformedHash
		return
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		err = ErrMalformedHash
		return
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		err = ErrMalformedHash
		return
	}
	if memory < minMemoryKiB || time < 1 || parallelism < 1 {
		err = ErrMalformedHash
		return
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || uint32(len(salt)) < minSaltLength {
		err = ErrMalformedHash
		return
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || uint32(len(key)) < minKeyLength {
		err = ErrMalformedHash
		return
	}

	return memory, time, parallelism, salt, key, nil
}
