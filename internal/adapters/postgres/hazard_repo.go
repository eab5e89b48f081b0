package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// HazardRepo implements ports.HazardStore on the hazards table.
type HazardRepo struct {
	db *DB
}

func NewHazardRepo(db *DB) *HazardRepo {
	return &HazardRepo{db: db}
}

func (r *HazardRepo) ListByCategory(ctx context.Context, c domain.HazardCategory) ([]domain.Point, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT latitude, longitude
		FROM hazards WHERE category = $1
		ORDER BY id
	`, string(c))
	if err != nil {
		return nil, fmt.Errorf("query %s hazards: %w", c, err)
	}
	defer rows.Close()

	pts := []domain.Point{}
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// ReplaceCategory deletes the category's rows and bulk-inserts points with
// COPY, inside one transaction.
func (r *HazardRepo) ReplaceCategory(ctx context.Context, c domain.HazardCategory, points []domain.Point) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM hazards WHERE category = $1`, string(c)); err != nil {
		return fmt.Errorf("delete %s hazards: %w", c, err)
	}

	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{string(c), p.Lat, p.Lon}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"hazards"},
		[]string{"category", "latitude", "longitude"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy %s hazards: %w", c, err)
	}

	return tx.Commit(ctx)
}

// Ping checks the underlying pool.
func (r *HazardRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
