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

// SQLite-backed implementation of the BoundStore port.
// Timestamps are stored as RFC 3339 text, booleans as 0/1.
type SqliteBoundStore struct {
	DB *sql.DB
}

func NewSqliteBoundStore(db *sql.DB) *SqliteBoundStore {
	return &SqliteBoundStore{DB: db}
}

func (s *SqliteBoundStore) Get(ctx context.Context, instance string) (_ *domain.Bound, err error) {
	defer obs.Time(ctx, "bounds.sqlite.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite bound store: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, `
	SELECT instance, cost, optimal, updated_at, run_id
	FROM bounds
	WHERE instance = ?;
	`, instance)

	b, err := scanSqliteBound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bound %s: %w", instance, err)
	}
	return &b, nil
}

func (s *SqliteBoundStore) Upsert(ctx context.Context, b domain.Bound) (_ bool, err error) {
	defer obs.Time(ctx, "bounds.sqlite.Upsert")(&err)

	if s.DB == nil {
		return false, errors.New("sqlite bound store: DB is nil")
	}
	if b.Instance == "" {
		return false, errors.New("upsert bound: instance must not be empty")
	}

	q := `
	INSERT INTO bounds (instance, cost, optimal, updated_at, run_id)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (instance) DO UPDATE
	SET cost = excluded.cost,
		optimal = excluded.optimal,
		updated_at = excluded.updated_at,
		run_id = excluded.run_id
	WHERE excluded.cost < bounds.cost - ? * MAX(1, ABS(bounds.cost))
		OR (excluded.optimal = 1 AND bounds.optimal = 0
			AND ABS(excluded.cost - bounds.cost) <= ? * MAX(1, ABS(excluded.cost), ABS(bounds.cost)));
	`
	res, err := s.DB.ExecContext(ctx, q,
		b.Instance, b.Cost, boolToInt(b.Optimal), updatedAt(b).Format(time.RFC3339Nano), b.RunID,
		domain.CostTolerance, domain.CostTolerance,
	)
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: %w", b.Instance, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert bound %s: rows affected: %w", b.Instance, err)
	}
	return n > 0, nil
}

func (s *SqliteBoundStore) MarkSuboptimal(ctx context.Context, instance string) error {
	if s.DB == nil {
		return errors.New("sqlite bound store: DB is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE bounds SET optimal = 0 WHERE instance = ?;`, instance); err != nil {
		return fmt.Errorf("mark suboptimal %s: %w", instance, err)
	}
	return nil
}

func (s *SqliteBoundStore) List(ctx context.Context) (_ []domain.Bound, err error) {
	defer obs.Time(ctx, "bounds.sqlite.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite bound store: DB is nil")
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
		b, err := scanSqliteBound(rows)
		if err != nil {
			return nil, fmt.Errorf("list bounds: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bounds: row iteration: %w", err)
	}

	return out, nil
}

func (s *SqliteBoundStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSqliteBound(r rowScanner) (domain.Bound, error) {
	var b domain.Bound
	var optimal int
	var ts string
	if err := r.Scan(&b.Instance, &b.Cost, &optimal, &ts, &b.RunID); err != nil {
		return b, err
	}
	b.Optimal = optimal != 0

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return b, fmt.Errorf("parse updated_at %q: %w", ts, err)
	}
	b.UpdatedAt = t
	return b, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
