package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RouteCacheStats returns how many routes are cached and when the newest
// one was written. newest is zero for an empty table.
func RouteCacheStats(ctx context.Context, db *DB) (count int, newest time.Time, err error) {
	q := `SELECT COUNT(*), MAX(updated_at) FROM route_cache`
	var last sql.NullInt64
	if err := db.QueryRowContext(ctx, q).Scan(&count, &last); err != nil {
		return 0, time.Time{}, fmt.Errorf("route cache stats: %w", err)
	}
	if last.Valid {
		newest = time.Unix(last.Int64, 0)
	}
	return count, newest, nil
}

// PruneRoutes deletes routes written before cutoff and returns how many
// were removed.
func PruneRoutes(ctx context.Context, db *DB, cutoff time.Time) (int64, error) {
	q := db.rebind(`DELETE FROM route_cache WHERE updated_at < ?`)
	res, err := db.ExecContext(ctx, q, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune route cache: %w", err)
	}
	return res.RowsAffected()
}
