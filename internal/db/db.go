package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder and column types for the two supported backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DB is a connection pool tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to Postgres for postgres:// DSNs (pgx) and to SQLite
// otherwise (modernc). A "sqlite://" prefix is stripped.
func Open(dsn string) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
		return &DB{DB: db, Dialect: Postgres}, nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if !strings.Contains(path, "?") {
		path += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &DB{DB: db, Dialect: SQLite}, nil
}

func Ping(ctx context.Context, db *DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureRouteCache creates the route cache table if it does not exist.
func EnsureRouteCache(ctx context.Context, db *DB) error {
	blob := "BLOB"
	if db.Dialect == Postgres {
		blob = "BYTEA"
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS route_cache (
  cache_key  TEXT PRIMARY KEY,
  payload    %s NOT NULL,
  updated_at BIGINT NOT NULL
)`, blob)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create route_cache: %w", err)
	}
	return nil
}

// FetchRoute returns the payload stored for key, or sql.ErrNoRows.
func FetchRoute(ctx context.Context, db *DB, key string) ([]byte, error) {
	q := db.rebind(`SELECT payload FROM route_cache WHERE cache_key = ?`)
	var payload []byte
	if err := db.QueryRowContext(ctx, q, key).Scan(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func StoreRoute(ctx context.Context, db *DB, key string, payload []byte) error {
	q := db.rebind(`INSERT INTO route_cache (cache_key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := db.ExecContext(ctx, q, key, payload, time.Now().Unix()); err != nil {
		return fmt.Errorf("store route %s: %w", key, err)
	}
	return nil
}

func DeleteRoute(ctx context.Context, db *DB, key string) error {
	q := db.rebind(`DELETE FROM route_cache WHERE cache_key = ?`)
	if _, err := db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("delete route %s: %w", key, err)
	}
	return nil
}

// rebind turns ? placeholders into $n for Postgres.
func (db *DB) rebind(q string) string {
	if db.Dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
