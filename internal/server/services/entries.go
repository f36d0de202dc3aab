package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webcatalog/internal/urlx"
)

// EntryInput is the caller-supplied part of an entry. A nil ImageID means
// "not provided": Create falls back to the placeholder, Update keeps the
// current image.
type EntryInput struct {
	Name        string
	Description string
	URL         string
	CategoryID  int64
	ImageID     *int64
}

func (in *EntryInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.URL = strings.TrimSpace(in.URL)

	switch {
	case in.Name == "":
		return common.Required("web_name")
	case in.URL == "":
		return common.Required("url")
	case in.CategoryID == 0:
		return common.Required("category_id")
	case in.Description == "":
		return common.Required("description")
	}

	in.URL = urlx.Normalize(in.URL)
	return nil
}

type EntryService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewEntryService(db dbx.Transactor, m repomanager.RepositoryManager) *EntryService {
	return &EntryService{db: db, repomanager: m, now: time.Now}
}

// Create stores a new entry and marks its image attached. Category and image
// ids are not checked for existence: orphans are repaired by FixOrphaned.
func (s *EntryService) Create(ctx context.Context, in EntryInput) (int64, error) {
	if err := in.normalize(); err != nil {
		return 0, err
	}

	imageID := common.PlaceholderImageID
	if in.ImageID != nil && *in.ImageID != 0 {
		imageID = *in.ImageID
	}

	e := &models.Entry{
		Name:        in.Name,
		Description: in.Description,
		URL:         in.URL,
		CategoryID:  in.CategoryID,
		ImageID:     imageID,
		AddedAt:     s.now(),
	}

	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		images := s.repomanager.Images(tx)
		if imageID != common.PlaceholderImageID {
			if err := images.Lock(ctx, imageID); err != nil {
				return common.Persistence("lock image", err)
			}
		}
		if _, err := s.repomanager.Entries(tx).Create(ctx, e); err != nil {
			return common.Persistence("create entry", err)
		}
		if imageID != common.PlaceholderImageID {
			if err := images.SetState(ctx, imageID, models.Attached); err != nil {
				return common.Persistence("attach image", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// Update overwrites the entry and refreshes its timestamp even when nothing
// else changed. A new image is handed off: the new one becomes attached and
// the old one unattached once no other entry references it.
func (s *EntryService) Update(ctx context.Context, id int64, in EntryInput) error {
	if id == 0 {
		return common.Required("id")
	}
	if err := in.normalize(); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		entries := s.repomanager.Entries(tx)
		images := s.repomanager.Images(tx)

		e, err := entries.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Public(common.ErrNotFound, "Entry not found")
			}
			return common.Persistence("load entry", err)
		}

		oldImage := e.ImageID
		newImage := oldImage
		if in.ImageID != nil {
			newImage = *in.ImageID
			if newImage == 0 {
				newImage = common.PlaceholderImageID
			}
		}
		handoff := newImage != oldImage

		if handoff {
			if err := lockImages(ctx, images, oldImage, newImage); err != nil {
				return err
			}
		}

		e.Name = in.Name
		e.Description = in.Description
		e.URL = in.URL
		e.CategoryID = in.CategoryID
		e.ImageID = newImage
		e.AddedAt = s.now()

		if err := entries.Update(ctx, e); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Public(common.ErrNotFound, "Entry not found")
			}
			return common.Persistence("update entry", err)
		}

		if !handoff {
			return nil
		}
		if newImage != common.PlaceholderImageID {
			if err := images.SetState(ctx, newImage, models.Attached); err != nil {
				return common.Persistence("attach image", err)
			}
		}
		return s.releaseImage(ctx, tx, oldImage, id)
	})
}

// Delete removes the entry. Its image becomes unattached when this was the
// last reference; the file itself stays until swept.
func (s *EntryService) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return common.Required("id")
	}

	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		entries := s.repomanager.Entries(tx)

		e, err := entries.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Public(common.ErrNotFound, "Entry not found")
			}
			return common.Persistence("load entry", err)
		}

		if err := lockImages(ctx, s.repomanager.Images(tx), e.ImageID); err != nil {
			return err
		}

		if err := entries.Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Public(common.ErrNotFound, "Entry not found")
			}
			return common.Persistence("delete entry", err)
		}

		return s.releaseImage(ctx, tx, e.ImageID, id)
	})
}

// releaseImage flips imageID to unattached when no entry other than
// excludeEntryID references it. Callers hold the image lock.
func (s *EntryService) releaseImage(ctx context.Context, tx dbx.DBTX, imageID, excludeEntryID int64) error {
	if imageID == common.PlaceholderImageID {
		return nil
	}
	n, err := s.repomanager.Entries(tx).CountByImage(ctx, imageID, excludeEntryID)
	if err != nil {
		return common.Persistence("count image references", err)
	}
	if n > 0 {
		return nil
	}
	if err := s.repomanager.Images(tx).SetState(ctx, imageID, models.Unattached); err != nil {
		return common.Persistence("detach image", err)
	}
	return nil
}

type imageLocker interface {
	Lock(ctx context.Context, id int64) error
}

// lockImages locks the non-placeholder images in ascending id order.
func lockImages(ctx context.Context, l imageLocker, ids ...int64) error {
	sorted := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != common.PlaceholderImageID {
			sorted = append(sorted, id)
		}
	}
	slices.Sort(sorted)

	for _, id := range sorted {
		if err := l.Lock(ctx, id); err != nil {
			return common.Persistence("lock image", err)
		}
	}
	return nil
}

// List returns every entry with its category name and image path, newest
// first. Orphaned entries are included.
func (s *EntryService) List(ctx context.Context) ([]models.EntryListing, error) {
	list, err := s.repomanager.Entries(s.db.Conn()).ListDetailed(ctx)
	if err != nil {
		return nil, common.Persistence("list entries", err)
	}
	return list, nil
}

// URLExists reports whether an entry with the normalized form of raw exists.
func (s *EntryService) URLExists(ctx context.Context, raw string) (bool, error) {
	ok, err := s.repomanager.Entries(s.db.Conn()).ExistsByURL(ctx, urlx.Normalize(raw))
	if err != nil {
		return false, common.Persistence("find entry by url", err)
	}
	return ok, nil
}
