package repositories

import (
	"context"
	"database/sql"
	"dropoff-route-service/internal/domain"
	"dropoff-route-service/internal/platform/obs"
	"errors"
	"fmt"
	"time"
)

// SQLBoundStore is a Postgres-backed implementation of the BoundStore port.
// The compare-and-update is a single upsert statement guarded by a WHERE clause.
type SQLBoundStore struct {
	DB *sql.DB
}

func NewSQLBoundStore(db *sql.DB) *SQLBoundStore {
	return &SQLBoundStore{DB: db}
}

func (s *SQLBoundStore) Get(ctx context.Context, instance string) (_ *domain.Bound, err error) {
	defer obs.Time(ctx, "bounds.sql.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("bound store: db is nil")
	}

	q := `
	SELECT instance, cost, optimal, updated_at, run_id
	FROM bounds
	WHERE instance = $1;
	`
	var b domain.Bound
	err = s.DB.QueryRowContext(ctx, q, instance).Scan(&b.Instance, &b.Cost, &b.Optimal, &b.UpdatedAt, &b.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bound %s: query bounds table: %w", instance, err)
	}
	return &b, nil
}

func (s *SQLBoundStore) Upsert(ctx context.Context, b domain.Bound) (_ bool, err error) {
	defer obs.Time(ctx, "bounds.sql.Upsert")(&err)

	if s.DB == nil {
		return false, errors.New("bound store: db is nil")
	}
	if b.Instance == "" {
		return false, errors.New("upsert bound: instance must not be empty")
	}

	q := `
	INSERT INTO bounds (instance, cost, optimal, updated_at, run_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (instance) DO UPDATE
	SET cost = EXCLUDED.cost,
		optimal = EXCLUDED.optimal,
		updated_at = EXCLUDED.updated_at,
		run_id = EXCLUDED.run_id
	WHERE EXCLUDED.cost < bounds.cost - $6::double precision * GREATEST(1, ABS(bounds.cost))
		OR (EXCLUDED.optimal AND NOT bounds.optimal
			AND ABS(EXCLUDED.cost - bounds.cost) <= $6::double precision * GREATEST(1, ABS(EXCLUDED.cost), ABS(bounds.cost)));
	`
	res, err := s.DB.ExecContext(ctx, q, b.Instance, b.Cost, b.Optimal, updatedAt(b), b.RunID, domain.CostTolerance)
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: %w", b.Instance, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: rows affected: %w", b.Instance, err)
	}
	return n > 0, nil
}

func (s *SQLBoundStore) MarkSuboptimal(ctx context.Context, instance string) error {
	if s.DB == nil {
		return errors.New("bound store: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE bounds SET optimal = FALSE WHERE instance = $1;`, instance); err != nil {
		return fmt.Errorf("mark suboptimal %s: %w", instance, err)
	}
	return nil
}

func (s *SQLBoundStore) List(ctx context.Context) (_ []domain.Bound, err error) {
	defer obs.Time(ctx, "bounds.sql.List")(&err)

	if s.DB == nil {
		return nil, errors.New("bound store: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT instance, cost, optimal, updated_at, run_id
	FROM bounds
	ORDER BY instance;
	`)
	if err != nil {
		return nil, fmt.Errorf("list bounds: query bounds table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Bound, 0, 64)
	for rows.Next() {
		var b domain.Bound
		if err := rows.Scan(&b.Instance, &b.Cost, &b.Optimal, &b.UpdatedAt, &b.RunID); err != nil {
			return nil, fmt.Errorf("list bounds: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bounds: row iteration: %w", err)
	}

	return out, nil
}

func (s *SQLBoundStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func updatedAt(b domain.Bound) time.Time {
	if b.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return b.UpdatedAt.UTC()
}
