// Package services implements the catalog consistency rules on top of the
// repositories: entry and category CRUD, the image attachment lifecycle
// and orphan reconciliation.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
)

type CategoryService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewCategoryService(db dbx.Transactor, m repomanager.RepositoryManager) *CategoryService {
	return &CategoryService{db: db, repomanager: m, now: time.Now}
}

// Create inserts a category. Names are matched case-sensitively.
func (s *CategoryService) Create(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, common.Required("category_name")
	}

	repo := s.repomanager.Categories(s.db.Conn())

	_, err := repo.FindByName(ctx, name)
	if err == nil {
		return 0, common.Public(common.ErrConflict, "Category already exists")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return 0, common.Persistence("find category", err)
	}

	id, err := repo.Create(ctx, name, s.now())
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return 0, common.Public(common.ErrConflict, "Category already exists")
		}
		return 0, common.Persistence("create category", err)
	}
	return id, nil
}

// Rename changes the display name only; entries keep their category id.
func (s *CategoryService) Rename(ctx context.Context, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" {
		return common.Required("old_name")
	}
	if newName == "" {
		return common.Required("new_name")
	}
	if oldName == newName {
		return nil
	}

	repo := s.repomanager.Categories(s.db.Conn())

	_, err := repo.FindByName(ctx, newName)
	if err == nil {
		return common.Public(common.ErrConflict, "Category name already exists")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return common.Persistence("find category", err)
	}

	if err := repo.Rename(ctx, oldName, newName, s.now()); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return common.Public(common.ErrNotFound, "Category not found")
		case errors.Is(err, common.ErrConflict):
			return common.Public(common.ErrConflict, "Category name already exists")
		}
		return common.Persistence("rename category", err)
	}
	return nil
}

// Delete moves the category's entries to the default category and removes
// it, in one transaction.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if id == common.DefaultCategoryID {
		return common.Public(common.ErrForbidden, "Cannot delete default category")
	}

	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Entries(tx).ReassignCategory(ctx, id, common.DefaultCategoryID); err != nil {
			return common.Persistence("reassign entries", err)
		}
		if err := s.repomanager.Categories(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Public(common.ErrNotFound, "Category not found")
			}
			return common.Persistence("delete category", err)
		}
		return nil
	})
}

// List returns the default category first, then by last update or creation.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	list, err := s.repomanager.Categories(s.db.Conn()).List(ctx)
	if err != nil {
		return nil, common.Persistence("list categories", err)
	}
	return list, nil
}
