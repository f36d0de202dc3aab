package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

const (
	orphanCategory = `(category_id IS NULL OR NOT EXISTS (SELECT 1 FROM categories c WHERE c.id = web_entries.category_id))`
	orphanImage    = `(image_id IS NULL OR NOT EXISTS (SELECT 1 FROM uploaded_images i WHERE i.id = web_entries.image_id))`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) (int64, error) {
	query :=
		`INSERT INTO web_entries (web_name, description, url, category_id, image_id, added_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.Name, e.Description, e.URL, e.CategoryID, e.ImageID, e.AddedAt).Scan(&e.ID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return e.ID, nil
}

// GetForUpdate loads the entry and locks its row for the rest of the transaction.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.Entry, error) {
	query :=
		`SELECT id, web_name, description, url, category_id, image_id, added_at FROM web_entries
		 WHERE id = $1
		 FOR UPDATE
		 `

	e := &models.Entry{}
	var category sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&e.ID, &e.Name, &e.Description, &e.URL, &category, &e.ImageID, &e.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.CategoryID = category.Int64

	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query :=
		`UPDATE web_entries
		 SET web_name = $1, description = $2, url = $3, category_id = $4, image_id = $5, added_at = $6
		 WHERE id = $7
		 `

	res, err := r.db.ExecContext(ctx, query,
		e.Name, e.Description, e.URL, e.CategoryID, e.ImageID, e.AddedAt, e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOne(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM web_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOne(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CountByImage counts live references to an image, ignoring one entry.
// Pass 0 as excludeEntryID to count all references.
func (r *PostgresRepository) CountByImage(ctx context.Context, imageID, excludeEntryID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM web_entries WHERE image_id = $1 AND id <> $2`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, imageID, excludeEntryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ReassignCategory(ctx context.Context, from, to int64) (int64, error) {
	query := `UPDATE web_entries SET category_id = $1 WHERE category_id = $2`
	return r.exec(ctx, query, to, from)
}

func (r *PostgresRepository) FixOrphanCategories(ctx context.Context) (int64, error) {
	query := `UPDATE web_entries SET category_id = 1 WHERE ` + orphanCategory
	return r.exec(ctx, query)
}

func (r *PostgresRepository) FixOrphanImages(ctx context.Context) (int64, error) {
	query := `UPDATE web_entries SET image_id = 1 WHERE ` + orphanImage
	return r.exec(ctx, query)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountOrphans(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM web_entries WHERE ` + orphanCategory + ` OR ` + orphanImage
	return r.count(ctx, query)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM web_entries`)
}

func (r *PostgresRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM web_entries WHERE added_at >= $1`, since)
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ListDetailed joins entries with their category name and image path.
// Orphaned entries are kept: unresolved categories yield an empty name and
// unresolved images the placeholder path.
func (r *PostgresRepository) ListDetailed(ctx context.Context) ([]models.EntryListing, error) {
	query :=
		`SELECT e.id, e.web_name, e.description, e.url, e.category_id, e.image_id, e.added_at,
		        COALESCE(c.category_name, ''), COALESCE(i.filepath, $1)
		 FROM web_entries e
		 LEFT JOIN categories c ON c.id = e.category_id
		 LEFT JOIN uploaded_images i ON i.id = e.image_id
		 ORDER BY e.added_at DESC, e.id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, common.PlaceholderImagePath)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.EntryListing
	for rows.Next() {
		var l models.EntryListing
		var category sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.URL, &category, &l.ImageID, &l.AddedAt,
			&l.CategoryName, &l.ImagePath); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		l.CategoryID = category.Int64
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM web_entries WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
