package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gps-animator/internal/db"
)

type countingMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (m *countingMetrics) CacheLookup(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[result]++
}

var route = orb.LineString{{15558.1, 4257445.2}, {15560.3, 4257450.9}, {15570, 4257460.25}}

func computeOnce(calls *int32) func(context.Context) (orb.LineString, error) {
	return func(context.Context) (orb.LineString, error) {
		atomic.AddInt32(calls, 1)
		return route, nil
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	a := orb.Point{139.7824489, 35.6936148}
	b := orb.Point{139.7854539, 35.6943669}
	assert.Equal(t, Key("walking", a, b), Key("walking", a, b))
	assert.NotEqual(t, Key("walking", a, b), Key("walking", b, a))
	assert.NotEqual(t, Key("walking", a, b), Key("car", a, b))
	assert.Regexp(t, `^walking_route_[0-9a-f]{16}$`, Key("walking", a, b))
}

func TestRoutesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := &countingMetrics{}
	r := NewRoutes(zaptest.NewLogger(t), store, m)

	var calls int32
	first, err := r.Fetch(ctx, "walking_route_a", computeOnce(&calls))
	require.NoError(t, err)
	second, err := r.Fetch(ctx, "walking_route_a", computeOnce(&calls))
	require.NoError(t, err)

	assert.Equal(t, route, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 1, m.results[ResultMiss])
	assert.Equal(t, 1, m.results[ResultHit])
}

func TestRoutesHealsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	m := &countingMetrics{}
	r := NewRoutes(zaptest.NewLogger(t), store, m)

	key := "walking_route_bad"
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".gob"), []byte("not a gob stream"), 0o644))

	var calls int32
	got, err := r.Fetch(ctx, key, computeOnce(&calls))
	require.NoError(t, err)
	assert.Equal(t, route, got)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 1, m.results[ResultCorrupt])

	got, err = r.Fetch(ctx, key, computeOnce(&calls))
	require.NoError(t, err)
	assert.Equal(t, route, got)
	assert.Equal(t, int32(1), calls)
}

func TestRoutesDoesNotStoreFailures(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	r := NewRoutes(zaptest.NewLogger(t), store, nil)

	boom := errors.New("boom")
	_, err = r.Fetch(ctx, "k", func(context.Context) (orb.LineString, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRoutesSerializesSameKey(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	r := NewRoutes(zaptest.NewLogger(t), store, nil)

	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Fetch(ctx, "shared", computeOnce(&calls))
			assert.NoError(t, err)
			assert.Equal(t, route, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls)
	assert.Empty(t, r.locks)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	back, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := NewMemory(4, back)

	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Put(ctx, "k", []byte("v")))
	got, err := back.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	got, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer conn.Close()

	s, err := NewSQLStore(ctx, conn)
	require.NoError(t, err)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Put(ctx, "k", []byte("one")))
	require.NoError(t, s.Put(ctx, "k", []byte("two")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	r := NewRoutes(zaptest.NewLogger(t), s, nil)
	var calls int32
	_, err = r.Fetch(ctx, "car_route_x", computeOnce(&calls))
	require.NoError(t, err)
	got2, err := r.Fetch(ctx, "car_route_x", computeOnce(&calls))
	require.NoError(t, err)
	assert.Equal(t, route, got2)
	assert.Equal(t, int32(1), calls)
}
