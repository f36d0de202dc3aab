package cli

import (
	"context"
	"io"

	"github.com/dmitrijs2005/webcatalog/internal/importer"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server"
	"github.com/dmitrijs2005/webcatalog/internal/server/config"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

// Sweep modes of sweep-images.
const (
	sweepDelete = "delete"
	sweepTemp   = "temp"
	sweepClean  = "clean"
)

// Backend is what the commands operate on.
type Backend interface {
	Migrate(ctx context.Context) error
	AddAdmin(ctx context.Context, username, password string) (*models.Admin, error)
	Scan(ctx context.Context) (*models.ScanReport, error)
	FixOrphaned(ctx context.Context) (*models.FixReport, error)
	SweepImages(ctx context.Context, mode string) (*models.SweepReport, error)
	Import(ctx context.Context, r io.Reader) (*importer.Report, error)
	Close() error
}

// openBackend is a seam for tests.
var openBackend = func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error) {
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &appBackend{app: app, logger: logger}, nil
}

type appBackend struct {
	app    *server.App
	logger logging.Logger
}

func (b *appBackend) Migrate(ctx context.Context) error {
	return b.app.Migrate(ctx)
}

func (b *appBackend) AddAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	return b.app.Auth.AddAdmin(ctx, username, password)
}

func (b *appBackend) Scan(ctx context.Context) (*models.ScanReport, error) {
	return b.app.System.Scan(ctx)
}

func (b *appBackend) FixOrphaned(ctx context.Context) (*models.FixReport, error) {
	return b.app.System.FixOrphaned(ctx)
}

func (b *appBackend) SweepImages(ctx context.Context, mode string) (*models.SweepReport, error) {
	switch mode {
	case sweepTemp:
		return b.app.Images.MoveUnattachedToTemp(ctx)
	case sweepClean:
		return b.app.Images.CleanTempImages(ctx)
	default:
		return b.app.Images.DeleteUnattached(ctx)
	}
}

func (b *appBackend) Import(ctx context.Context, r io.Reader) (*importer.Report, error) {
	return importer.New(b.app.Categories, b.app.Entries, b.logger).Import(ctx, r)
}

func (b *appBackend) Close() error {
	return b.app.Close()
}
