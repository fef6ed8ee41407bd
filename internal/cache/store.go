// Package cache memoizes route geometries. A Store is a plain key/value
// backend; Routes layers the route codec, self-healing of corrupt entries and
// per-key locking on top of it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bluele/gcache"
	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
)

var (
	ErrMiss           = errors.New("cache miss")
	ErrCacheCorrupted = errors.New("cache entry corrupted")
)

// Store is a byte-oriented key/value backend. Get returns ErrMiss for
// absent keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key for a route between two geographic points
// (x = lon, y = lat). The prefix keeps walking and driving routes apart.
func Key(prefix string, from, to orb.Point) string {
	s := ff(from.Lat()) + "_" + ff(from.Lon()) + "_" + ff(to.Lat()) + "_" + ff(to.Lon())
	return fmt.Sprintf("%s_route_%016x", prefix, xxhash.Sum64String(s))
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// FileStore keeps one file per key in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string { return filepath.Join(s.dir, key+".gob") }

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMiss
	}
	return b, err
}

// Put writes through a temp file so readers never see a partial entry.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Memory puts an in-process LRU in front of another store.
type Memory struct {
	front gcache.Cache
	back  Store
}

func NewMemory(size int, back Store) *Memory {
	return &Memory{front: gcache.New(size).LRU().Build(), back: back}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := m.front.Get(key); err == nil {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}
	b, err := m.back.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = m.front.Set(key, b)
	return b, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := m.back.Put(ctx, key, value); err != nil {
		return err
	}
	return m.front.Set(key, value)
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.front.Remove(key)
	return m.back.Delete(ctx, key)
}
