package images

import (
	"context"

	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	Lock(ctx context.Context, id int64) error
	SetState(ctx context.Context, id int64, state models.AttachState) error
	ListUnattached(ctx context.Context) ([]models.Image, error)
	List(ctx context.Context) ([]models.Image, error)
	Delete(ctx context.Context, id int64) error
	Counts(ctx context.Context) (models.ImageCounts, error)
	ExistsByFilename(ctx context.Context, filename string) (bool, error)
	FindByFilename(ctx context.Context, filename string) (*models.Image, error)
}
