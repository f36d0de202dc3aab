package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/admins"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/categories"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/entries"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/images"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Categories(db dbx.DBTX) categories.Repository
	Entries(db dbx.DBTX) entries.Repository
	Images(db dbx.DBTX) images.Repository
	Admins(db dbx.DBTX) admins.Repository
}
