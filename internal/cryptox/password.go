// Package cryptox holds the password hashing used for identity credentials.
//
// Two encodings are understood:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>   (default)
//	$2a$10$...                                     (bcrypt)
//
// Verify dispatches on the encoding, so stored hashes keep verifying when
// the configured default algorithm changes.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type Algorithm string

const (
	Argon2id Algorithm = "argon2id"
	Bcrypt   Algorithm = "bcrypt"
)

var (
	ErrEmptySecret          = errors.New("empty secret")
	ErrUnsupportedAlgorithm = errors.New("unsupported password hash algorithm")
)

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultArgon2Params are used when no WithArgon2Params option is given.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// stored hashes asking for more than this are treated as malformed
const maxArgon2Memory = 1024 * 1024

type PasswordHasher struct {
	algorithm  Algorithm
	argon      Argon2Params
	bcryptCost int
}

type Option func(*PasswordHasher)

func WithArgon2Params(p Argon2Params) Option {
	return func(h *PasswordHasher) { h.argon = p }
}

func WithBcryptCost(cost int) Option {
	return func(h *PasswordHasher) { h.bcryptCost = cost }
}

// NewPasswordHasher returns a hasher producing hashes with algorithm.
func NewPasswordHasher(algorithm Algorithm, opts ...Option) (*PasswordHasher, error) {
	h := &PasswordHasher{
		algorithm:  algorithm,
		argon:      DefaultArgon2Params,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(h)
	}

	switch algorithm {
	case Argon2id, Bcrypt:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", h.bcryptCost)
	}

	return h, nil
}

// Hash derives an encoded hash of secret with a fresh random salt.
func (h *PasswordHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	if h.algorithm == Bcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(secret), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	}

	p := h.argon
	salt := common.GenerateRandByteArray(p.SaltLength)
	key := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. Unknown or malformed
// encodings never match.
func (h *PasswordHasher) Verify(secret, encoded string) bool {
	switch {
	case isBcrypt(encoded):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret)) == nil
	case strings.HasPrefix(encoded, "$argon2id$"):
		p, salt, key, err := decodeArgon2(encoded)
		if err != nil {
			return false
		}
		candidate := argon2.IDKey([]byte(secret), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(key)))
		return subtle.ConstantTimeCompare(candidate, key) == 1
	default:
		return false
	}
}

// NeedsRehash reports whether encoded was produced with another algorithm or
// weaker parameters than this hasher would use now.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if h.algorithm == Bcrypt {
		if !isBcrypt(encoded) {
			return true
		}
		cost, err := bcrypt.Cost([]byte(encoded))
		return err != nil || cost < h.bcryptCost
	}

	p, _, key, err := decodeArgon2(encoded)
	if err != nil {
		return true
	}
	return p.Memory < h.argon.Memory ||
		p.Iterations < h.argon.Iterations ||
		p.Parallelism < h.argon.Parallelism ||
		uint32(len(key)) < h.argon.KeyLength
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != string(Argon2id) {
		return p, nil, nil, errors.New("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errors.New("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 params: %w", err)
	}
	if p.Memory == 0 || p.Memory > maxArgon2Memory || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, errors.New("argon2 params out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, errors.New("argon2 salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errors.New("argon2 key")
	}

	p.SaltLength = len(salt)
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
