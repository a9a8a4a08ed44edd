package repositories

import (
	"context"
	"dropoff-route-service/internal/platform/db"
	"dropoff-route-service/internal/ports"
	"fmt"
	"strings"
)

// OpenBoundStore builds the bound store named by driver:
// memory, bolt (dsn is a file path), sqlite (file path), postgres (URL) or
// redis (URL). SQL stores get their schema created.
func OpenBoundStore(ctx context.Context, driver, dsn string) (ports.BoundStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "memory":
		return NewMemoryBoundStore(), nil

	case "bolt", "bbolt":
		return OpenBoltBoundStore(dsn)

	case "sqlite":
		conn, err := db.OpenSqlite(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open bound store: %w", err)
		}
		if err := InitSchema(ctx, conn, DialectSqlite); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open bound store: %w", err)
		}
		return NewSqliteBoundStore(conn), nil

	case "postgres", "pgx":
		conn, err := db.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open bound store: %w", err)
		}
		if err := InitSchema(ctx, conn, DialectPostgres); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open bound store: %w", err)
		}
		return NewSQLBoundStore(conn), nil

	case "redis":
		return OpenRedisBoundStore(ctx, dsn, "")

	default:
		return nil, fmt.Errorf("open bound store: unknown driver %q", driver)
	}
}
