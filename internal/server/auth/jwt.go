// Package auth issues and verifies realm-scoped bearer tokens.
//
// Each realm signs with its own HMAC key, so a token minted for one realm
// fails signature verification in the other. The realm is also carried as a
// claim and re-checked after the signature.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Realm Realm  `json:"realm"`
	Email string `json:"email,omitempty"`
}

type TokenService struct {
	keys map[Realm][]byte
	now  func() time.Time
}

type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(userKey, adminKey []byte, opts ...Option) (*TokenService, error) {
	if len(userKey) == 0 || len(adminKey) == 0 {
		return nil, errors.New("signing keys must not be empty")
	}
	if string(userKey) == string(adminKey) {
		return nil, errors.New("user and admin signing keys must differ")
	}

	s := &TokenService{
		keys: map[Realm][]byte{RealmUser: userKey, RealmAdmin: adminKey},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs claims for their realm. Issue and expiry times are taken from
// the service clock, not from claims.
func (s *TokenService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", common.ErrValidation)
	}

	// NumericDate has second precision; truncating keeps exp == iat + ttl.
	now := s.now().Truncate(time.Second)
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Realm: claims.Realm(),
	}

	switch c := claims.(type) {
	case UserClaims:
		if c.UserID == "" {
			return "", fmt.Errorf("%w: empty user id", common.ErrValidation)
		}
		tc.Subject = c.UserID
	case AdminClaims:
		if c.Email == "" {
			return "", fmt.Errorf("%w: empty admin email", common.ErrValidation)
		}
		tc.Email = c.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	signed, err := token.SignedString(s.keys[claims.Realm()])
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify checks token against realm and returns its claims.
func (s *TokenService) Verify(token string, realm Realm) (Claims, error) {
	key, ok := s.keys[realm]
	if !ok {
		return nil, fmt.Errorf("%w: unknown realm %q", common.ErrValidation, realm)
	}

	tc := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, tc,
		func(t *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	// A token is still valid at the exp instant itself.
	if s.now().After(tc.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}

	if tc.Realm != realm {
		return nil, common.ErrTokenSignature
	}

	expires := tc.ExpiresAt.Time.UTC()
	var issued time.Time
	if tc.IssuedAt != nil {
		issued = tc.IssuedAt.Time.UTC()
	}
	switch realm {
	case RealmAdmin:
		if tc.Email == "" {
			return nil, common.ErrTokenMalformed
		}
		return AdminClaims{Email: tc.Email, IssuedAt: issued, ExpiresAt: expires}, nil
	default:
		if tc.Subject == "" {
			return nil, common.ErrTokenMalformed
		}
		return UserClaims{UserID: tc.Subject, IssuedAt: issued, ExpiresAt: expires}, nil
	}
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrTokenSignature
	default:
		return common.ErrTokenMalformed
	}
}
