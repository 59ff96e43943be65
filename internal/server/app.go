// Package server wires configuration, storage, services and the HTTP API
// together and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/config"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/services"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	tokens         *auth.TokenManager
	userService    *services.UserService
	productService *services.ProductService
	imageService   *services.ImageService
}

// NewApp opens the database, applies migrations, seeds the admin account
// and builds the services. The returned App owns the database handle.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlog(os.Stdout, c.LogFormat)

	if c.UsesDevSecret() {
		logger.Warn(ctx, "using the built-in development signing key; set -s or secret_key in the config file before deploying")
	}

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.New(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	opts := []auth.Option{auth.WithIssuer(c.TokenIssuer), auth.WithAudience(c.TokenAudience)}
	if len(c.PreviousSecretKeys) > 0 {
		prev := make([][]byte, 0, len(c.PreviousSecretKeys))
		for _, k := range c.PreviousSecretKeys {
			prev = append(prev, []byte(k))
		}
		opts = append(opts, auth.WithPreviousKeys(prev...))
	}
	tokens, err := auth.NewTokenManager([]byte(c.SecretKey), c.TokenValidityDuration, opts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token manager: %w", err)
	}

	us := services.NewUserService(db, rm, tokens, logger)
	ps := services.NewProductService(db, rm, logger)

	if err := us.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword, c.AdminEmail); err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		config:         c,
		logger:         logger,
		db:             db,
		tokens:         tokens,
		userService:    us,
		productService: ps,
	}
	if c.ObjectStorageEnabled() {
		app.imageService = services.NewImageService(c, ps)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	opts := []httpapi.Option{httpapi.WithShutdownTimeout(app.config.ShutdownTimeout)}
	if app.imageService != nil {
		opts = append(opts, httpapi.WithImages(app.imageService))
	}

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.tokens, app.userService, app.productService, opts...)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until the server stops, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
