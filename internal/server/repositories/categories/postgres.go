package categories

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, name string, now time.Time) (int64, error) {
	query :=
		`INSERT INTO categories (category_name, created_at, updated_at)
		 VALUES ($1, $2, NULL)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, name, now).Scan(&id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return 0, common.ErrConflict
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	query :=
		`SELECT id, category_name, created_at, updated_at FROM categories
		 WHERE category_name = $1
		 `

	c := &models.Category{}
	var updated sql.NullTime
	err := r.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if updated.Valid {
		c.UpdatedAt = &updated.Time
	}

	return c, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, oldName, newName string, now time.Time) error {
	query :=
		`UPDATE categories SET category_name = $1, updated_at = $2
		 WHERE category_name = $3
		 `

	res, err := r.db.ExecContext(ctx, query, newName, now, oldName)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConflict
		}
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
	query := `DELETE FROM categories WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
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

// List returns the default category first, then the most recently touched.
func (r *PostgresRepository) List(ctx context.Context) ([]models.Category, error) {
	query :=
		`SELECT id, category_name, created_at, updated_at FROM categories
		 ORDER BY CASE WHEN id = 1 THEN 0 ELSE 1 END, COALESCE(updated_at, created_at) DESC, id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var c models.Category
		var updated sql.NullTime
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if updated.Valid {
			t := updated.Time
			c.UpdatedAt = &t
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
