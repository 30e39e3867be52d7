// Package services contains application services for the realmkeeper client.
// This file defines the authentication service: register, user and admin
// login, guarded calls that keep the local session in step with the server,
// and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/realmkeeper/internal/client/client"
	"github.com/dmitrijs2005/realmkeeper/internal/client/models"
	"github.com/dmitrijs2005/realmkeeper/internal/client/session"
	"github.com/dmitrijs2005/realmkeeper/internal/filex"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
)

// MaxImageBytes bounds profile images read from disk.
const MaxImageBytes = 5 << 20

var (
	// ErrNotAuthenticated means no token is held for the realm.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrSessionExpired means the server rejected the held token. The
	// realm's session has been cleared.
	ErrSessionExpired = errors.New("session expired, please sign in again")
)

// AuthService defines authentication operations for the CLI.
//
// Every call that presents a token goes through the same guard: a 401 or 403
// from the server clears that realm's session and yields ErrSessionExpired.
type AuthService interface {
	Register(ctx context.Context, username, email string, password []byte) (*models.Profile, error)
	Login(ctx context.Context, email string, password []byte) (*models.Profile, error)
	AdminLogin(ctx context.Context, email string, password []byte) (*models.Admin, error)
	Verify(ctx context.Context, realm session.Realm) error
	RefreshProfile(ctx context.Context) (*models.Profile, error)
	UploadProfileImage(ctx context.Context, path string) (*models.Profile, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.Profile, error)
	CreateUser(ctx context.Context, username, email string, password []byte) (*models.Profile, error)
	UpdateUser(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
	DeleteUser(ctx context.Context, id string) error
	SweepOrphans(ctx context.Context, limit int) (*models.SweepReport, error)
	Logout(ctx context.Context, realm session.Realm) error
	IsAuthenticated(realm session.Realm) bool
	CurrentUser() (*models.Profile, bool)
	CurrentAdmin() (*models.Admin, bool)
	Ping(ctx context.Context) error
}

type authService struct {
	client  client.Client
	session *session.Session
	logger  logging.Logger
}

// NewAuthService constructs an AuthService bound to the API client and a
// restored session.
func NewAuthService(c client.Client, s *session.Session, l logging.Logger) AuthService {
	return &authService{client: c, session: s, logger: l.With("module", "auth_service")}
}

func (a *authService) Register(ctx context.Context, username, email string, password []byte) (*models.Profile, error) {
	res, err := a.client.Register(ctx, username, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return a.saveUser(ctx, res)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.Profile, error) {
	res, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.saveUser(ctx, res)
}

func (a *authService) saveUser(ctx context.Context, res *models.AuthResult) (*models.Profile, error) {
	if res.User == nil || res.Token == "" {
		return nil, errors.New("server returned no user session")
	}
	if err := a.session.Save(ctx, session.RealmUser, res.Token, res.User); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (a *authService) AdminLogin(ctx context.Context, email string, password []byte) (*models.Admin, error) {
	res, err := a.client.AdminLogin(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}
	if res.Admin == nil || res.Token == "" {
		return nil, errors.New("server returned no admin session")
	}
	if err := a.session.Save(ctx, session.RealmAdmin, res.Token, res.Admin); err != nil {
		return nil, err
	}
	return res.Admin, nil
}

// guarded runs call with realm's token.
func (a *authService) guarded(ctx context.Context, realm session.Realm, call func(token string) error) error {
	token := a.session.Token(realm)
	if token == "" {
		return ErrNotAuthenticated
	}

	err := call(token)
	if errors.Is(err, client.ErrUnauthorized) {
		a.logger.Info(ctx, "token rejected, clearing session", "realm", string(realm))
		if ierr := a.session.Invalidate(ctx, realm); ierr != nil {
			a.logger.Warn(ctx, "session invalidate failed", "realm", string(realm), "error", ierr)
		}
		return ErrSessionExpired
	}
	return err
}

func (a *authService) Verify(ctx context.Context, realm session.Realm) error {
	return a.guarded(ctx, realm, func(token string) error {
		_, err := a.client.VerifyToken(ctx, string(realm), token)
		return err
	})
}

// RefreshProfile fetches the signed-in user's profile and stores it.
func (a *authService) RefreshProfile(ctx context.Context) (*models.Profile, error) {
	current, ok := a.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	var profile *models.Profile
	err := a.guarded(ctx, session.RealmUser, func(token string) error {
		p, err := a.client.GetProfile(ctx, token, current.ID)
		if err != nil {
			return err
		}
		profile = p
		return a.session.Save(ctx, session.RealmUser, token, p)
	})
	return profile, err
}

func (a *authService) UploadProfileImage(ctx context.Context, path string) (*models.Profile, error) {
	current, ok := a.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	data, err := filex.ReadFileLimited(path, MaxImageBytes)
	if err != nil {
		return nil, err
	}

	var profile *models.Profile
	err = a.guarded(ctx, session.RealmUser, func(token string) error {
		p, err := a.client.UploadProfileImage(ctx, token, current.ID, filepath.Base(path), data)
		if err != nil {
			return err
		}
		profile = p
		return a.session.Save(ctx, session.RealmUser, token, p)
	})
	return profile, err
}

func (a *authService) ListUsers(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	var users []models.Profile
	err := a.guarded(ctx, session.RealmAdmin, func(token string) error {
		list, err := a.client.ListUsers(ctx, token, limit, offset)
		users = list
		return err
	})
	return users, err
}

func (a *authService) CreateUser(ctx context.Context, username, email string, password []byte) (*models.Profile, error) {
	var profile *models.Profile
	err := a.guarded(ctx, session.RealmAdmin, func(token string) error {
		p, err := a.client.CreateUser(ctx, token, username, email, string(password))
		profile = p
		return err
	})
	return profile, err
}

// UpdateUser edits a user as the administrator. When the edited user is the
// one signed in locally, the stored profile is refreshed too.
func (a *authService) UpdateUser(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	var profile *models.Profile
	err := a.guarded(ctx, session.RealmAdmin, func(token string) error {
		p, err := a.client.UpdateUser(ctx, token, id, u)
		profile = p
		return err
	})
	if err != nil {
		return nil, err
	}

	if current, ok := a.CurrentUser(); ok && profile != nil && current.ID == profile.ID {
		if serr := a.session.Save(ctx, session.RealmUser, a.session.Token(session.RealmUser), profile); serr != nil {
			a.logger.Warn(ctx, "refresh stored profile failed", "error", serr)
		}
	}
	return profile, nil
}

func (a *authService) DeleteUser(ctx context.Context, id string) error {
	return a.guarded(ctx, session.RealmAdmin, func(token string) error {
		return a.client.DeleteUser(ctx, token, id)
	})
}

func (a *authService) SweepOrphans(ctx context.Context, limit int) (*models.SweepReport, error) {
	var report *models.SweepReport
	err := a.guarded(ctx, session.RealmAdmin, func(token string) error {
		r, err := a.client.SweepOrphans(ctx, token, limit)
		report = r
		return err
	})
	return report, err
}

func (a *authService) Logout(ctx context.Context, realm session.Realm) error {
	return a.session.Invalidate(ctx, realm)
}

func (a *authService) IsAuthenticated(realm session.Realm) bool {
	return a.session.IsAuthenticated(realm)
}

func (a *authService) CurrentUser() (*models.Profile, bool) {
	var p models.Profile
	ok, err := a.session.Profile(session.RealmUser, &p)
	if err != nil || !ok {
		return nil, false
	}
	return &p, true
}

func (a *authService) CurrentAdmin() (*models.Admin, bool) {
	var adm models.Admin
	ok, err := a.session.Profile(session.RealmAdmin, &adm)
	if err != nil || !ok {
		return nil, false
	}
	return &adm, true
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
