// Package guard decides whether a request may reach a realm-protected
// operation. It performs no I/O beyond token verification.
package guard

import (
	"strings"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
)

// Reason says why a request was rejected.
type Reason int

const (
	// NoToken means the header was missing or not a bearer credential.
	NoToken Reason = iota + 1
	// Invalid means a token was presented but failed verification.
	Invalid
)

func (r Reason) String() string {
	switch r {
	case NoToken:
		return "no_token"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Check: either admitted with claims or rejected
// with a reason.
type Decision struct {
	Claims auth.Claims
	Reason Reason
	Err    error
}

func (d Decision) Admitted() bool { return d.Claims != nil }

func admit(c auth.Claims) Decision { return Decision{Claims: c} }

func reject(r Reason, err error) Decision { return Decision{Reason: r, Err: err} }

// Verifier is satisfied by *auth.TokenService.
type Verifier interface {
	Verify(token string, realm auth.Realm) (auth.Claims, error)
}

type Guard struct {
	verifier Verifier
}

func New(v Verifier) *Guard {
	return &Guard{verifier: v}
}

// Check inspects an Authorization header value for realm.
func (g *Guard) Check(header string, realm auth.Realm) Decision {
	token, ok := BearerToken(header)
	if !ok {
		return reject(NoToken, common.ErrNoToken)
	}

	claims, err := g.verifier.Verify(token, realm)
	if err != nil {
		return reject(Invalid, err)
	}

	return admit(claims)
}

// BearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// CanMutate reports whether claims may modify the identity with id. Admins may
// modify any identity, users only their own.
func CanMutate(claims auth.Claims, id string) bool {
	switch c := claims.(type) {
	case auth.AdminClaims:
		return true
	case auth.UserClaims:
		return c.UserID == id
	default:
		return false
	}
}
