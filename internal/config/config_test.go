package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"CONFIG_FILE", "ANIMATOR_HOME", "INPUT_DIR", "OUTPUT_DIR", "CACHE_DIR", "POINTS_FILE",
	"RAIL_NETWORK_FILE", "CACHE_DSN", "MEMORY_CACHE_SIZE", "CACHE_MAX_AGE_DAYS", "OSRM_URL", "OVERPASS_URL",
	"SEARCH_RADIUS_M", "HTTP_TIMEOUT_SEC", "RESOLVE_WORKERS", "ANIMATION_DURATION_SEC",
	"MIN_GAP_FRACTION", "PAUSE_MULTIPLIER", "BBOX_SCALE", "MAX_TRAVEL_SEC", "MIN_IDLE_SEC",
	"IDLE_SHOW_SEC", "NATS_URL", "NATS_SUBJECT_PREFIX", "LOG_NATS_SUBJECTS", "METRICS_ADDR",
	"LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("ANIMATOR_HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "input"), cfg.InputDir)
	assert.Equal(t, filepath.Join(home, "output"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(home, "input", "points.json"), cfg.PointsFile)
	assert.Equal(t, filepath.Join(home, "cache", "rail_network.geojson"), cfg.RailNetworkFile)
	assert.Equal(t, 5000.0, cfg.SearchRadius)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 600.0, cfg.AnimationDuration)
	assert.Equal(t, 0.1, cfg.MinGapFraction)
	assert.Equal(t, 1024, cfg.MemoryCacheSize)
	assert.Zero(t, cfg.CacheMaxAgeDays)
	assert.Equal(t, 4, cfg.ResolveWorkers)
	assert.Equal(t, "animator", cfg.NATSSubjectPrefix)
	assert.Empty(t, cfg.CacheDSN)
	assert.False(t, cfg.LogNATSSubjects)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "animator.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
home: /srv/animator
output_dir: /srv/renders
animation_duration_sec: 120
resolve_workers: 8
cache_dsn: postgres://cache@db/animator
`), 0o644))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("ANIMATION_DURATION_SEC", "90")
	t.Setenv("LOG_NATS_SUBJECTS", "yes")
	t.Setenv("POINTS_FILE", "/data/trip.gpx")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/animator", cfg.Home)
	assert.Equal(t, "/srv/renders", cfg.OutputDir)
	assert.Equal(t, filepath.Join("/srv/animator", "cache"), cfg.CacheDir)
	assert.Equal(t, "/data/trip.gpx", cfg.PointsFile)
	assert.Equal(t, 90.0, cfg.AnimationDuration)
	assert.Equal(t, 8, cfg.ResolveWorkers)
	assert.Equal(t, "postgres://cache@db/animator", cfg.CacheDSN)
	assert.True(t, cfg.LogNATSSubjects)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"MIN_GAP_FRACTION", "abc", `invalid MIN_GAP_FRACTION: "abc"`},
		{"HTTP_TIMEOUT_SEC", "1.5", `invalid HTTP_TIMEOUT_SEC: "1.5"`},
		{"RESOLVE_WORKERS", "0", "ResolveWorkers"},
		{"PAUSE_MULTIPLIER", "2", "PauseMultiplier"},
		{"LOG_FORMAT", "xml", "LogFormat"},
		{"OSRM_URL", "not a url", "OSRMURL"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ANIMATOR_HOME", t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, "Documents", "gps-animator"), defaultHome())

	require.NoError(t, os.MkdirAll(filepath.Join(home, "Dokumente", "gps-animator"), 0o755))
	assert.Equal(t, filepath.Join(home, "Dokumente", "gps-animator"), defaultHome())
}
