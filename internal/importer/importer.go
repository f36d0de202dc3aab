package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/services"
	"github.com/google/uuid"
)

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, name string) (int64, error)
}

type EntryStore interface {
	Create(ctx context.Context, in services.EntryInput) (int64, error)
	URLExists(ctx context.Context, raw string) (bool, error)
}

// Report summarizes an import run. Rejected bookmarks are listed in Errors
// and counted as skipped.
type Report struct {
	RunID             string
	Created           int
	Skipped           int
	CategoriesCreated int
	Errors            []string
}

type Importer struct {
	categories CategoryStore
	entries    EntryStore
	logger     logging.Logger
}

func New(c CategoryStore, e EntryStore, l logging.Logger) *Importer {
	return &Importer{categories: c, entries: e, logger: l.With("module", "importer")}
}

// Import creates missing categories by folder name and an entry per new
// bookmark. Top-level bookmarks go to the default category; bookmarks whose
// normalized url is already catalogued are skipped.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	bookmarks, err := ParseNetscape(r)
	if err != nil {
		return nil, fmt.Errorf("parse bookmarks: %w", err)
	}

	report := &Report{RunID: uuid.NewString()}
	log := im.logger.With("run_id", report.RunID)

	existing, err := im.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	categoryIDs := make(map[string]int64, len(existing))
	for _, c := range existing {
		categoryIDs[c.Name] = c.ID
	}

	for _, b := range bookmarks {
		exists, err := im.entries.URLExists(ctx, b.URL)
		if err != nil {
			return report, err
		}
		if exists {
			report.Skipped++
			continue
		}

		categoryID := common.DefaultCategoryID
		if b.Folder != "" {
			id, found := categoryIDs[b.Folder]
			if !found {
				id, err = im.categories.Create(ctx, b.Folder)
				if err != nil {
					return report, fmt.Errorf("create category %q: %w", b.Folder, err)
				}
				categoryIDs[b.Folder] = id
				report.CategoriesCreated++
			}
			categoryID = id
		}

		description := b.Description
		if description == "" {
			description = b.Name
		}

		_, err = im.entries.Create(ctx, services.EntryInput{
			Name:        b.Name,
			Description: description,
			URL:         b.URL,
			CategoryID:  categoryID,
		})
		if err != nil {
			msg, public := common.PublicMessage(err)
			if !public {
				return report, err
			}
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", b.URL, msg))
			continue
		}
		report.Created++
	}

	log.Info(ctx, "import finished",
		"created", report.Created,
		"skipped", report.Skipped,
		"categories_created", report.CategoriesCreated,
	)
	return report, nil
}
