package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRoomDirectory implements RoomDirectory against the rooms
// table owned by the out-of-scope HTTP/CRUD layer. It only ever issues
// the one write the core needs; it never reads or creates rooms.
type PostgresRoomDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresRoomDirectory wraps an existing pool.
func NewPostgresRoomDirectory(pool *pgxpool.Pool) *PostgresRoomDirectory {
	return &PostgresRoomDirectory{pool: pool}
}

// Connect dials Postgres with fixed pool settings (25 max / 2 min
// connections, 30m lifetime, 5m idle time) and verifies connectivity
// before returning.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (d *PostgresRoomDirectory) UpdateHostID(ctx context.Context, roomID string, newHostUserID int64) error {
	const q = `UPDATE rooms SET host_id = $1, updated_at = now() WHERE id = $2`
	_, err := d.pool.Exec(ctx, q, newHostUserID, roomID)
	if err != nil {
		return fmt.Errorf("update host id for room %s: %w", roomID, err)
	}
	return nil
}
