// Package server wires the realmkeeper components together and runs the HTTP
// and gRPC servers until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/realmkeeper/internal/cryptox"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/assets"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/realmkeeper/internal/server/config"
	"github.com/dmitrijs2005/realmkeeper/internal/server/guard"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/realmkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/realmkeeper/internal/server/rest"
	"github.com/dmitrijs2005/realmkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/realmkeeper/internal/server/grpc"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

	newS3Store = func(ctx context.Context, c assets.S3Config) (assets.Store, error) {
		return assets.NewS3Store(ctx, c)
	}

	logOutput io.Writer = os.Stdout
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	identityService *services.IdentityService
	assetService    *services.AssetService
	guard           *guard.Guard
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSON(logOutput, c.LogLevel)

	db, rm, err := openStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, db, rm)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return app, nil
}

func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return nil, memory.NewRepositoryManager(), nil
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return db, rm, nil
}

func newAssetStore(ctx context.Context, c *config.Config) (assets.Store, error) {
	if c.AssetBackend == "memory" {
		return assets.NewMemoryStore(c.AssetPublicBaseURL), nil
	}
	return newS3Store(ctx, assets.S3Config{
		Region:        c.S3Region,
		Endpoint:      c.S3BaseEndpoint,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		Bucket:        c.S3Bucket,
		PublicBaseURL: c.AssetPublicBaseURL,
		UsePathStyle:  c.S3UsePathStyle,
	})
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	hasher, err := cryptox.NewPasswordHasher(cryptox.Algorithm(c.PasswordHashAlgorithm), cryptox.WithBcryptCost(c.BcryptCost))
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService([]byte(c.UserSigningKey), []byte(c.AdminSigningKey))
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	store, err := newAssetStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("asset store: %w", err)
	}

	is, err := services.NewIdentityService(db, rm, hasher, tokens, c.TokenTTL,
		services.AdminCredential{Email: c.AdminEmail, PasswordHash: c.AdminPasswordHash}, logger)
	if err != nil {
		return nil, err
	}

	as := services.NewAssetService(db, rm, store, services.AssetOptions{
		Folder:         c.AssetFolder,
		MaxUploadBytes: c.MaxUploadBytes,
		Timeout:        c.AssetTimeout,
	}, logger)

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		identityService: is,
		assetService:    as,
		guard:           guard.New(tokens),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.HTTPAddr, app.logger, app.identityService, app.assetService, app.guard, rest.Options{
		MaxUploadBytes:  app.config.MaxUploadBytes,
		ShutdownTimeout: app.config.ShutdownTimeout,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is canceled or a shutdown signal arrives, and both
// servers have stopped.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
}
