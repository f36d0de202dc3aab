package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
)

// newSitesWindow is how far back the dashboard counts entries as new.
const newSitesWindow = 7 * 24 * time.Hour

// SystemService runs the reconciliation passes and aggregate reports.
type SystemService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewSystemService(db dbx.Transactor, m repomanager.RepositoryManager) *SystemService {
	return &SystemService{db: db, repomanager: m, now: time.Now}
}

// Scan counts images, entries, categories and orphaned entries.
// Image counts exclude the placeholder.
func (s *SystemService) Scan(ctx context.Context) (*models.ScanReport, error) {
	conn := s.db.Conn()
	entries := s.repomanager.Entries(conn)

	counts, err := s.repomanager.Images(conn).Counts(ctx)
	if err != nil {
		return nil, common.Persistence("count images", err)
	}
	totalEntries, err := entries.Count(ctx)
	if err != nil {
		return nil, common.Persistence("count entries", err)
	}
	totalCategories, err := s.repomanager.Categories(conn).Count(ctx)
	if err != nil {
		return nil, common.Persistence("count categories", err)
	}
	orphaned, err := entries.CountOrphans(ctx)
	if err != nil {
		return nil, common.Persistence("count orphans", err)
	}

	return &models.ScanReport{
		TotalImages:      counts.Total,
		AttachedImages:   counts.Attached,
		UnattachedImages: counts.Unattached,
		TotalEntries:     totalEntries,
		TotalCategories:  totalCategories,
		OrphanedEntries:  orphaned,
	}, nil
}

// FixOrphaned points unresolved categories and images back at the defaults.
// Running it twice in a row fixes nothing the second time.
func (s *SystemService) FixOrphaned(ctx context.Context) (*models.FixReport, error) {
	report := &models.FixReport{}
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		entries := s.repomanager.Entries(tx)

		n, err := entries.FixOrphanCategories(ctx)
		if err != nil {
			return common.Persistence("fix orphan categories", err)
		}
		report.CategoryFixed = n

		n, err = entries.FixOrphanImages(ctx)
		if err != nil {
			return common.Persistence("fix orphan images", err)
		}
		report.ImageFixed = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.TotalFixed = report.CategoryFixed + report.ImageFixed
	return report, nil
}

// Dashboard counts all entries, entries added since midnight seven days
// ago, and categories.
func (s *SystemService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	conn := s.db.Conn()
	entries := s.repomanager.Entries(conn)

	total, err := entries.Count(ctx)
	if err != nil {
		return nil, common.Persistence("count entries", err)
	}

	now := s.now()
	y, m, d := now.Add(-newSitesWindow).Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	recent, err := entries.CountSince(ctx, since)
	if err != nil {
		return nil, common.Persistence("count new entries", err)
	}

	categories, err := s.repomanager.Categories(conn).Count(ctx)
	if err != nil {
		return nil, common.Persistence("count categories", err)
	}

	return &models.DashboardStats{
		TotalSites:      total,
		NewSites:        recent,
		TotalCategories: categories,
	}, nil
}
