package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/guard"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// multipartOverhead is added to the upload limit to leave room for form
// boundaries and headers.
const multipartOverhead = 64 << 10

type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

type Server struct {
	address         string
	app             *fiber.App
	identities      IdentityService
	assets          AssetService
	guard           *guard.Guard
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, is IdentityService, as AssetService, g *guard.Guard, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		address:         address,
		identities:      is,
		assets:          as,
		guard:           g,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: opts.ShutdownTimeout,
	}

	cfg := fiber.Config{
		AppName:               "realmkeeper",
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          errorHandler(s.logger),
	}
	if opts.MaxUploadBytes > 0 {
		cfg.BodyLimit = int(opts.MaxUploadBytes) + multipartOverhead
	}

	s.app = fiber.New(cfg)
	s.app.Use(requestLogger(s.logger))
	s.app.Use(recover.New())
	s.routes()

	return s
}

// Run serves until ctx is canceled, then shuts down within the configured
// timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	return s.app.ShutdownWithContext(sctx)
}
