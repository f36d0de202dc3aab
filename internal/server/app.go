// Package server wires the catalog server together: database, blob storage,
// services, the action dispatcher and the HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/api"
	"github.com/dmitrijs2005/webcatalog/internal/server/config"
	"github.com/dmitrijs2005/webcatalog/internal/server/httpapi"
	"github.com/dmitrijs2005/webcatalog/internal/server/metrics"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webcatalog/internal/server/services"
	"github.com/dmitrijs2005/webcatalog/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Collector

	Categories *services.CategoryService
	Entries    *services.EntryService
	Images     *services.ImageService
	System     *services.SystemService
	Auth       *services.AuthService
}

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// NewApp connects to the database and blob storage and builds the services.
// It does not run migrations; call Migrate for that.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobs(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tr := dbx.NewSQLTransactor(db, nil)
	m := repomanager.NewPostgresRepositoryManager()

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: m,
		metrics:     metrics.NewCollector(),
		Categories:  services.NewCategoryService(tr, m),
		Entries:     services.NewEntryService(tr, m),
		Images:      services.NewImageService(tr, m, blobs, c.MaxUploadBytes, logger),
		System:      services.NewSystemService(tr, m),
		Auth:        services.NewAuthService(tr, m, c.SecretKey, c.SessionTTL),
	}, nil
}

func newBlobs(ctx context.Context, c *config.Config) (storage.Blobs, error) {
	switch c.StorageBackend {
	case "", "fs":
		return storage.NewFSBlobs(c.ImageDir)
	case "s3":
		return storage.NewS3Blobs(ctx, storage.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// Migrate applies the embedded schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// Handler builds the HTTP handler over the app's services.
func (app *App) Handler() *httpapi.Router {
	d := api.NewDispatcher(app.logger, app.metrics, api.Services{
		Categories: app.Categories,
		Entries:    app.Entries,
		Images:     app.Images,
		System:     app.System,
		Auth:       app.Auth,
	})

	return httpapi.NewRouter(httpapi.Options{
		Dispatcher:     d,
		Images:         app.Images,
		Metrics:        app.metrics.Handler(),
		Logger:         app.logger,
		AllowedOrigins: app.config.AllowedOrigins,
		MaxBodyBytes:   app.config.MaxUploadBytes * 2,
		SessionTTL:     app.Auth.TTL(),
	})
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
	s := httpapi.NewServer(app.config.HTTPAddr, app.Handler().Setup(), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives.
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

	app.logger.Info(ctx, "App stopped")
}
