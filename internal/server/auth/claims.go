package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
)

// Realm is an independent authentication domain with its own signing key.
type Realm string

const (
	RealmUser  Realm = "user"
	RealmAdmin Realm = "admin"
)

// ParseRealm maps "" to the user realm.
func ParseRealm(s string) (Realm, error) {
	switch Realm(s) {
	case "", RealmUser:
		return RealmUser, nil
	case RealmAdmin:
		return RealmAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown realm %q", common.ErrValidation, s)
	}
}

// Claims is either UserClaims or AdminClaims.
type Claims interface {
	Realm() Realm
	Issued() time.Time
	Expires() time.Time

	claims()
}

// UserClaims identify an end user by id.
type UserClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c UserClaims) Realm() Realm       { return RealmUser }
func (c UserClaims) Issued() time.Time  { return c.IssuedAt }
func (c UserClaims) Expires() time.Time { return c.ExpiresAt }
func (UserClaims) claims()              {}

// AdminClaims identify the administrator principal by email.
type AdminClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c AdminClaims) Realm() Realm       { return RealmAdmin }
func (c AdminClaims) Issued() time.Time  { return c.IssuedAt }
func (c AdminClaims) Expires() time.Time { return c.ExpiresAt }
func (AdminClaims) claims()              {}
