// Package services holds the identity and profile-asset use cases. Handlers
// call into services; services talk to repositories, the token service and
// the asset store.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// PasswordHasher is satisfied by *cryptox.PasswordHasher.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) bool
	NeedsRehash(encoded string) bool
}

// TokenService is satisfied by *auth.TokenService.
type TokenService interface {
	Issue(claims auth.Claims, ttl time.Duration) (string, error)
	Verify(token string, realm auth.Realm) (auth.Claims, error)
}

// AdminCredential is the single administrator principal. It is configured
// out of band and never stored in the credential store.
type AdminCredential struct {
	Email        string
	PasswordHash string
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = normalizeEmail(r.Email)
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

// UpdateRequest is an administrator's edit of an identity. Empty fields are
// left unchanged.
type UpdateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *UpdateRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = normalizeEmail(r.Email)
}

func (r UpdateRequest) Validate() error {
	if r.Username == "" && r.Email == "" && r.Password == "" {
		return validation.Errors{"username": errNothingToUpdate}
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Length(1, 72)),
	)
}

var errNothingToUpdate = errors.New("at least one field must be given")

// maxListLimit caps one page of ListIdentities.
const maxListLimit = 500

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// UserSession is the result of a successful registration or user login.
type UserSession struct {
	Identity *models.Identity
	Token    string
}

// AdminSession is the result of a successful admin login.
type AdminSession struct {
	Admin models.PublicAdmin
	Token string
}

type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenService
	tokenTTL    time.Duration
	admin       AdminCredential
	logger      logging.Logger

	// dummyHash is verified against when the email is unknown so both
	// failure paths cost the same.
	dummyHash string
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, h PasswordHasher, ts TokenService,
	tokenTTL time.Duration, admin AdminCredential, l logging.Logger) (*IdentityService, error) {

	dummy, err := h.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	admin.Email = normalizeEmail(admin.Email)

	return &IdentityService{
		db:          db,
		repomanager: m,
		hasher:      h,
		tokens:      ts,
		tokenTTL:    tokenTTL,
		admin:       admin,
		logger:      l.With("module", "identity_service"),
		dummyHash:   dummy,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError keeps the ozzo field errors reachable with errors.As while
// matching common.ErrValidation with errors.Is.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrValidation, err)
}

// internalError marks a storage or infrastructure failure. Its detail is
// logged, never shown to clients.
func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrorInternal, op, err)
}

func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*UserSession, error) {
	identity, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(auth.UserClaims{UserID: identity.ID}, s.tokenTTL)
	if err != nil {
		return nil, internalError("issue token", err)
	}

	s.logger.Info(ctx, "identity registered", "id", identity.ID)

	return &UserSession{Identity: identity, Token: token}, nil
}

// CreateIdentity is the administrator's account creation. No token is issued.
func (s *IdentityService) CreateIdentity(ctx context.Context, req RegisterRequest) (*models.Identity, error) {
	identity, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "identity created by admin", "id", identity.ID)
	return identity, nil
}

func (s *IdentityService) create(ctx context.Context, req RegisterRequest) (*models.Identity, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	identity, err := s.repomanager.Identities(s.db).Create(ctx, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, internalError("create identity", err)
	}

	return identity, nil
}

// Login fails with common.ErrAuthenticationFailure for both an unknown email
// and a wrong password.
func (s *IdentityService) Login(ctx context.Context, req LoginRequest) (*UserSession, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	repo := s.repomanager.Identities(s.db)

	identity, err := repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			return nil, common.ErrAuthenticationFailure
		}
		return nil, internalError("find identity", err)
	}

	if !s.hasher.Verify(req.Password, identity.PasswordHash) {
		return nil, common.ErrAuthenticationFailure
	}

	if s.hasher.NeedsRehash(identity.PasswordHash) {
		s.logger.Info(ctx, "stored password hash uses outdated parameters", "id", identity.ID)
	}

	token, err := s.tokens.Issue(auth.UserClaims{UserID: identity.ID}, s.tokenTTL)
	if err != nil {
		return nil, internalError("issue token", err)
	}

	return &UserSession{Identity: identity, Token: token}, nil
}

func (s *IdentityService) AdminLogin(ctx context.Context, req LoginRequest) (*AdminSession, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(req.Email)), []byte(s.admin.Email)) == 1
	// always verify so a wrong email costs the same as a wrong password
	passwordOK := s.hasher.Verify(req.Password, s.admin.PasswordHash)

	if !emailOK || !passwordOK {
		s.logger.Warn(ctx, "admin login rejected")
		return nil, common.ErrAuthenticationFailure
	}

	token, err := s.tokens.Issue(auth.AdminClaims{Email: s.admin.Email}, s.tokenTTL)
	if err != nil {
		return nil, internalError("issue token", err)
	}

	return &AdminSession{Admin: models.PublicAdmin{Email: s.admin.Email}, Token: token}, nil
}

// VerifyToken checks a token for realm. For the user realm the identity must
// still exist.
func (s *IdentityService) VerifyToken(ctx context.Context, token string, realm auth.Realm) (auth.Claims, error) {
	if token == "" {
		return nil, common.ErrNoToken
	}

	claims, err := s.tokens.Verify(token, realm)
	if err != nil {
		return nil, err
	}

	if uc, ok := claims.(auth.UserClaims); ok {
		if _, err := s.GetIdentity(ctx, uc.UserID); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

func (s *IdentityService) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrIdentityNotFound
	}

	identity, err := s.repomanager.Identities(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, internalError("find identity", err)
	}

	return identity, nil
}

// ListIdentities returns one page of identities in creation order.
func (s *IdentityService) ListIdentities(ctx context.Context, limit, offset int) ([]*models.Identity, error) {
	// ozzo's Min treats zero as empty and skips it.
	verrs := validation.Errors{}
	if limit < 1 || limit > maxListLimit {
		verrs["limit"] = fmt.Errorf("must be between 1 and %d", maxListLimit)
	}
	if offset < 0 {
		verrs["offset"] = errors.New("must not be negative")
	}
	if err := verrs.Filter(); err != nil {
		return nil, validationError(err)
	}

	list, err := s.repomanager.Identities(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, internalError("list identities", err)
	}
	return list, nil
}

// UpdateIdentity applies an administrator's edit. A new password is hashed
// before it reaches the store.
func (s *IdentityService) UpdateIdentity(ctx context.Context, id string, req UpdateRequest) (*models.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrIdentityNotFound
	}

	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	u := models.ProfileUpdate{Username: req.Username, Email: req.Email}
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, internalError("hash password", err)
		}
		u.PasswordHash = hash
	}

	identity, err := s.repomanager.Identities(s.db).UpdateProfile(ctx, id, u)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrIdentityNotFound
		case errors.Is(err, common.ErrDuplicateIdentity):
			return nil, common.ErrDuplicateIdentity
		}
		return nil, internalError("update identity", err)
	}

	s.logger.Info(ctx, "identity updated by admin", "id", id)
	return identity, nil
}
