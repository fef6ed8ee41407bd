package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// Lookup results reported to Metrics.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultCorrupt = "corrupt"
)

type Metrics interface {
	CacheLookup(result string)
}

type routeEntry struct {
	Points []orb.Point
}

// Routes memoizes route geometries in a Store. Only one lookup per key runs
// at a time; a concurrent caller for the same key waits and then reads the
// stored value.
type Routes struct {
	store   Store
	logger  *zap.Logger
	metrics Metrics

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewRoutes(logger *zap.Logger, store Store, m Metrics) *Routes {
	return &Routes{
		store:   store,
		logger:  logger,
		metrics: m,
		locks:   make(map[string]*keyLock),
	}
}

// Fetch returns the cached route for key, computing and storing it on a miss.
// Corrupt entries are purged and recomputed; errors from compute are
// returned unchanged and nothing is stored.
func (r *Routes) Fetch(ctx context.Context, key string, compute func(context.Context) (orb.LineString, error)) (orb.LineString, error) {
	unlock := r.lock(key)
	defer unlock()

	ls, err := r.load(ctx, key)
	switch {
	case err == nil:
		r.observe(ResultHit)
		return ls, nil
	case errors.Is(err, ErrCacheCorrupted):
		r.observe(ResultCorrupt)
		r.logger.Warn("purging corrupt cache entry", zap.String("key", key), zap.Error(err))
		if derr := r.store.Delete(ctx, key); derr != nil {
			r.logger.Warn("failed to purge cache entry", zap.String("key", key), zap.Error(derr))
		}
	case errors.Is(err, ErrMiss):
		r.observe(ResultMiss)
	default:
		r.observe(ResultMiss)
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	ls, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.save(ctx, key, ls); err != nil {
		r.logger.Warn("failed to cache route", zap.String("key", key), zap.Error(err))
	} else {
		r.logger.Debug("cached route", zap.String("key", key), zap.Int("points", len(ls)))
	}
	return ls, nil
}

func (r *Routes) load(ctx context.Context, key string) (orb.LineString, error) {
	b, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var e routeEntry
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	if len(e.Points) == 0 {
		return nil, fmt.Errorf("%w: empty route", ErrCacheCorrupted)
	}
	return orb.LineString(e.Points), nil
}

func (r *Routes) save(ctx context.Context, key string, ls orb.LineString) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(routeEntry{Points: ls}); err != nil {
		return err
	}
	return r.store.Put(ctx, key, buf.Bytes())
}

func (r *Routes) observe(result string) {
	if r.metrics != nil {
		r.metrics.CacheLookup(result)
	}
}

func (r *Routes) lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
