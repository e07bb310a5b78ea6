// Package server assembles the two filevault services. Each app owns its
// database pool, runs migrations on startup, mounts its HTTP routes, and
// shuts down gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/password"
	"github.com/dmitrijs2005/filevault/internal/server/api/handlers"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/httpserver"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

// App runs one HTTP server plus its backing database pool.
type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpserver.Server
}

func newLogger() logging.Logger {
	h := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return logging.NewSlogLogger(h)
}

func openDatabase(ctx context.Context, dsn string, m repomanager.RepositoryManager) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, nil
}

func newTokenService(c *config.Config) *auth.Service {
	return auth.NewService(
		[]byte(c.SecretKey),
		c.TokenIssuer,
		c.TokenAudience,
		c.AccessTokenValidityDuration,
		c.RefreshTokenValidityDuration,
	)
}

// NewAuthApp builds the auth service: registration, login, refresh, profile.
func NewAuthApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := newLogger().With("service", "auth")

	m := repomanager.NewPostgresRepositoryManager()
	db, err := openDatabase(ctx, c.DatabaseDSN, m)
	if err != nil {
		return nil, err
	}

	tokens := newTokenService(c)
	userService := services.NewUserService(db, m, password.NewHasher(c.BcryptCost), tokens)
	handler := handlers.NewAuthHandler(userService, tokens, logger)

	srv := httpserver.New(c.AuthEndpointAddr, c.AuthRequestTimeout, logger, func(r chi.Router) {
		handler.Routes(r)
	})

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

// NewFileApp builds the file service: upload, listing, download URLs,
// soft and hard delete.
func NewFileApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := newLogger().With("service", "files")

	m := repomanager.NewPostgresRepositoryManager()
	db, err := openDatabase(ctx, c.DatabaseDSN, m)
	if err != nil {
		return nil, err
	}

	tokens := newTokenService(c)
	store := objectstore.NewStore(c)
	fileService := services.NewFileService(db, m, store, c.PresignTTL, logger)
	handler := handlers.NewFilesHandler(fileService, tokens, logger)

	srv := httpserver.New(c.FileEndpointAddr, c.FileRequestTimeout, logger, func(r chi.Router) {
		handler.Routes(r)
	})

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until the context is canceled or a signal arrives, then closes
// the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
