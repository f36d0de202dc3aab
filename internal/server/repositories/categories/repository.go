package categories

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, name string, now time.Time) (int64, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	Rename(ctx context.Context, oldName, newName string, now time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.Category, error)
	Count(ctx context.Context) (int64, error)
}
