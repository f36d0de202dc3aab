package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
)

// notPlaceholder filters out the protected placeholder row by id and by name.
const notPlaceholder = `id <> 1 AND filename NOT ILIKE 'placeholder-img%'`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	query :=
		`INSERT INTO uploaded_images (filename, filepath, is_attached, uploaded_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		img.FileName, img.FilePath, string(img.State), img.UploadedAt).Scan(&img.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return img, nil
}

// Lock takes a row lock on the image until the surrounding transaction ends.
// A missing row is not an error: orphaned references lock nothing.
func (r *PostgresRepository) Lock(ctx context.Context, id int64) error {
	query := `SELECT id FROM uploaded_images WHERE id = $1 FOR UPDATE`

	var got int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&got)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetState(ctx context.Context, id int64, state models.AttachState) error {
	query := `UPDATE uploaded_images SET is_attached = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, string(state), id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListUnattached(ctx context.Context) ([]models.Image, error) {
	query :=
		`SELECT id, filename, filepath, is_attached, uploaded_at FROM uploaded_images
		 WHERE is_attached = 'unattached' AND ` + notPlaceholder + `
		 ORDER BY id
		 `
	return r.list(ctx, query)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Image, error) {
	query :=
		`SELECT id, filename, filepath, is_attached, uploaded_at FROM uploaded_images
		 ORDER BY uploaded_at DESC, id DESC
		 `
	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]models.Image, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Image
	for rows.Next() {
		var img models.Image
		var state string
		if err := rows.Scan(&img.ID, &img.FileName, &img.FilePath, &state, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		img.State = models.AttachState(state)
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploaded_images WHERE id = $1`, id)
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

// Counts aggregates image states. The placeholder is excluded.
func (r *PostgresRepository) Counts(ctx context.Context) (models.ImageCounts, error) {
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_attached = 'attached'),
		        COUNT(*) FILTER (WHERE is_attached = 'unattached')
		 FROM uploaded_images
		 WHERE ` + notPlaceholder

	var c models.ImageCounts
	if err := r.db.QueryRowContext(ctx, query).Scan(&c.Total, &c.Attached, &c.Unattached); err != nil {
		return models.ImageCounts{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM uploaded_images WHERE filename = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, filename).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) FindByFilename(ctx context.Context, filename string) (*models.Image, error) {
	query :=
		`SELECT id, filename, filepath, is_attached, uploaded_at FROM uploaded_images
		 WHERE filename = $1
		 `

	img := &models.Image{}
	var state string
	err := r.db.QueryRowContext(ctx, query, filename).
		Scan(&img.ID, &img.FileName, &img.FilePath, &state, &img.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	img.State = models.AttachState(state)

	return img, nil
}
