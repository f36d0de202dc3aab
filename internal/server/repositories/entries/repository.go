package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Entry) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Entry, error)
	Update(ctx context.Context, e *models.Entry) error
	Delete(ctx context.Context, id int64) error
	CountByImage(ctx context.Context, imageID, excludeEntryID int64) (int64, error)
	ReassignCategory(ctx context.Context, from, to int64) (int64, error)
	FixOrphanCategories(ctx context.Context) (int64, error)
	FixOrphanImages(ctx context.Context) (int64, error)
	CountOrphans(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListDetailed(ctx context.Context) ([]models.EntryListing, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
}
