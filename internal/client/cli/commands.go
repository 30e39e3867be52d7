package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/realmkeeper/internal/client/models"
	"github.com/dmitrijs2005/realmkeeper/internal/client/session"
	"github.com/dmitrijs2005/realmkeeper/internal/common"
)

const (
	// defaultSweepLimit matches the server's default batch.
	defaultSweepLimit = 100
	defaultListLimit  = 50
)

var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

var errAlreadySignedIn = errors.New("already signed in")

func parseLimit(args []string, def int) (int, bool) {
	switch len(args) {
	case 0:
		return def, true
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (a *App) register(ctx context.Context) error {
	if a.isLoggedIn(session.RealmUser) {
		a.println("Already signed in, log out first.")
		return errAlreadySignedIn
	}

	username, err := getSimpleText(a.reader, "Username:", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.Register(ctx, username, email, password)
	if err != nil {
		return a.report(err)
	}

	a.println("Registered and signed in as", p.Username)
	return nil
}

func (a *App) login(ctx context.Context) error {
	if a.isLoggedIn(session.RealmUser) {
		a.println("Already signed in, log out first.")
		return errAlreadySignedIn
	}

	email, err := getSimpleText(a.reader, "Email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.println("Signed in as", p.Username)
	return nil
}

func (a *App) adminLogin(ctx context.Context) error {
	if a.isLoggedIn(session.RealmAdmin) {
		a.println("Already signed in as admin, log out first.")
		return errAlreadySignedIn
	}

	email, err := getSimpleText(a.reader, "Admin email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	adm, err := a.authService.AdminLogin(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.println("Signed in as admin", adm.Email)
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	shown := false

	if a.isLoggedIn(session.RealmUser) {
		p, err := a.authService.RefreshProfile(ctx)
		if err != nil {
			_ = a.report(err)
			if !a.isLoggedIn(session.RealmUser) {
				return err
			}
			p, _ = a.authService.CurrentUser()
		}
		if p != nil {
			a.println("user:", p.Username, "<"+p.Email+">", "id="+p.ID)
			if p.ProfileImage != "" {
				a.println("image:", p.ProfileImage)
			}
			shown = true
		}
	}

	if adm, ok := a.authService.CurrentAdmin(); ok {
		a.println("admin:", adm.Email)
		shown = true
	}

	if !shown {
		a.println("Not signed in.")
	}
	return nil
}

func (a *App) avatar(ctx context.Context, path string) error {
	p, err := a.authService.UploadProfileImage(ctx, path)
	if err != nil {
		return a.report(err)
	}
	a.println("Profile image updated:", p.ProfileImage)
	return nil
}

func (a *App) listUsers(ctx context.Context, limit int) error {
	users, err := a.authService.ListUsers(ctx, limit, 0)
	if err != nil {
		return a.report(err)
	}
	if len(users) == 0 {
		a.println("No users.")
		return nil
	}
	for _, u := range users {
		a.println(u.ID, u.Username, "<"+u.Email+">")
	}
	return nil
}

func (a *App) addUser(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username:", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email:", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.CreateUser(ctx, username, email, password)
	if err != nil {
		return a.report(err)
	}
	a.println("User created:", p.Username, "id="+p.ID)
	return nil
}

// editUser prompts for each field; a blank answer keeps the current value.
func (a *App) editUser(ctx context.Context, id string) error {
	var u models.ProfileUpdate
	var err error

	if u.Username, err = getSimpleText(a.reader, "New username (blank to keep):", a.out); err != nil {
		return err
	}
	if u.Email, err = getSimpleText(a.reader, "New email (blank to keep):", a.out); err != nil {
		return err
	}
	change, err := getSimpleText(a.reader, "Change password? (y/N):", a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(change, "y") {
		password, err := getPassword(a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)
		u.Password = string(password)
	}

	if u == (models.ProfileUpdate{}) {
		a.println("Nothing to update.")
		return nil
	}

	p, err := a.authService.UpdateUser(ctx, id, u)
	if err != nil {
		return a.report(err)
	}
	a.println("User updated:", p.Username, "<"+p.Email+">")
	return nil
}

func (a *App) deleteUser(ctx context.Context, id string) error {
	if err := a.authService.DeleteUser(ctx, id); err != nil {
		return a.report(err)
	}
	a.println("User deleted:", id)
	return nil
}

func (a *App) sweep(ctx context.Context, limit int) error {
	r, err := a.authService.SweepOrphans(ctx, limit)
	if err != nil {
		return a.report(err)
	}
	a.println("Sweep finished: deleted", r.Deleted, "failed", r.Failed)
	return nil
}

func (a *App) logout(ctx context.Context, realm session.Realm) error {
	if !a.isLoggedIn(realm) {
		a.println("Not signed in.")
		return nil
	}
	if err := a.authService.Logout(ctx, realm); err != nil {
		return a.report(err)
	}
	a.println("Signed out of", string(realm), "realm.")
	return nil
}
