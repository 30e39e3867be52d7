package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/client/client"
	"github.com/dmitrijs2005/realmkeeper/internal/client/config"
	"github.com/dmitrijs2005/realmkeeper/internal/client/services"
	"github.com/dmitrijs2005/realmkeeper/internal/client/session"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// onlineCheckInterval is how often the server is probed.
const onlineCheckInterval = 5 * time.Second

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stderr, c.LogLevel)

	db, err := client.OpenDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	s := session.New(db)
	if err := s.Restore(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	as := services.NewAuthService(apiClient, s, logger)

	return &App{
		config:      c,
		authService: as,
		db:          db,
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn(realm session.Realm) bool {
	return a.authService.IsAuthenticated(realm)
}

// report prints the outcome of a command. An expired session is reported as
// such so the user knows to sign in again.
func (a *App) report(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrSessionExpired):
		a.println("Session expired, please sign in again.")
	case errors.Is(err, services.ErrNotAuthenticated):
		a.println("Not signed in.")
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		a.println("Server unavailable.")
	default:
		a.println("Error:", err.Error())
	}
	return err
}

// verifyStored drops stored sessions the server no longer accepts.
func (a *App) verifyStored(ctx context.Context) {
	for _, realm := range []session.Realm{session.RealmUser, session.RealmAdmin} {
		if !a.isLoggedIn(realm) {
			continue
		}
		if err := a.authService.Verify(ctx, realm); err != nil {
			_ = a.report(err)
		}
	}
}

func (a *App) getStatus() string {
	var parts []string
	if p, ok := a.authService.CurrentUser(); ok {
		parts = append(parts, p.Username)
	}
	if _, ok := a.authService.CurrentAdmin(); ok {
		parts = append(parts, "[admin]")
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.println("Welcome to realmkeeper CLI (type 'help' for commands)")

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
		a.verifyStored(ctx)
	}

	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
