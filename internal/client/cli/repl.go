package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/realmkeeper/internal/client/session"
)

type execIface interface {
	register(ctx context.Context) error
	login(ctx context.Context) error
	adminLogin(ctx context.Context) error
	whoami(ctx context.Context) error
	avatar(ctx context.Context, path string) error
	listUsers(ctx context.Context, limit int) error
	addUser(ctx context.Context) error
	editUser(ctx context.Context, id string) error
	deleteUser(ctx context.Context, id string) error
	sweep(ctx context.Context, limit int) error
	logout(ctx context.Context, realm session.Realm) error
}

const helpText = `Commands:
  register        create an account and sign in
  login           sign in as a user
  adminlogin      sign in as the administrator
  whoami          show signed-in principals
  avatar <path>   upload a profile image
  users [limit]   list users (admin)
  adduser         create a user (admin)
  edituser <id>   change a user's details (admin)
  deluser <id>    delete a user (admin)
  sweep [limit]   clean up orphaned images (admin)
  logout [admin]  sign out
  exit | quit     leave`

func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(w, "%s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(w)
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "register":
			_ = a.register(ctx)
		case "login":
			_ = a.login(ctx)
		case "adminlogin":
			_ = a.adminLogin(ctx)
		case "whoami":
			_ = a.whoami(ctx)
		case "avatar":
			if len(args) != 1 {
				fmt.Fprintln(w, "usage: avatar <path>")
				continue
			}
			_ = a.avatar(ctx, args[0])
		case "users":
			limit, ok := parseLimit(args, defaultListLimit)
			if !ok {
				fmt.Fprintln(w, "usage: users [limit]")
				continue
			}
			_ = a.listUsers(ctx, limit)
		case "adduser":
			_ = a.addUser(ctx)
		case "edituser":
			if len(args) != 1 {
				fmt.Fprintln(w, "usage: edituser <id>")
				continue
			}
			_ = a.editUser(ctx, args[0])
		case "deluser":
			if len(args) != 1 {
				fmt.Fprintln(w, "usage: deluser <id>")
				continue
			}
			_ = a.deleteUser(ctx, args[0])
		case "sweep":
			limit, ok := parseLimit(args, defaultSweepLimit)
			if !ok {
				fmt.Fprintln(w, "usage: sweep [limit]")
				continue
			}
			_ = a.sweep(ctx, limit)
		case "logout":
			realm := session.RealmUser
			if len(args) == 1 && strings.EqualFold(args[0], "admin") {
				realm = session.RealmAdmin
			} else if len(args) > 0 {
				fmt.Fprintln(w, "usage: logout [admin]")
				continue
			}
			_ = a.logout(ctx, realm)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
