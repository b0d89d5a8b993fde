package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository is a database-backed cache of catalog meals.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a meal in the database.
func (r *Repository) Save(ctx context.Context, m Meal) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal meal to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO meals (id, data, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		m.ID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save meal %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a meal fetched no earlier than maxAge ago. A zero maxAge
// accepts any age. Missing or expired meals return nil, nil.
func (r *Repository) Get(ctx context.Context, id string, maxAge time.Duration) (*Meal, error) {
	var (
		data      string
		fetchedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `SELECT data, fetched_at FROM meals WHERE id = ?`, id).Scan(&data, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal by ID: %w", err)
	}
	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return nil, nil
	}

	var m Meal
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal JSON: %w", err)
	}
	return &m, nil
}

// Count returns the number of cached meals.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return count, nil
}

// Prune deletes meals fetched before the cutoff and reports how many were removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meals WHERE fetched_at < ?`, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune meals: %w", err)
	}
	return res.RowsAffected()
}
