package cache

import (
	"context"
	"database/sql"
	"errors"

	"gps-animator/internal/db"
)

// SQLStore keeps entries in the route_cache table of a Postgres or SQLite
// database.
type SQLStore struct {
	db *db.DB
}

func NewSQLStore(ctx context.Context, conn *db.DB) (*SQLStore, error) {
	if err := db.EnsureRouteCache(ctx, conn); err != nil {
		return nil, err
	}
	return &SQLStore{db: conn}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := db.FetchRoute(ctx, s.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	return db.StoreRoute(ctx, s.db, key, value)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return db.DeleteRoute(ctx, s.db, key)
}
