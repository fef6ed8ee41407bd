package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Home            string `yaml:"home" validate:"required"`
	InputDir        string `yaml:"input_dir" validate:"required"`
	OutputDir       string `yaml:"output_dir" validate:"required"`
	CacheDir        string `yaml:"cache_dir" validate:"required"`
	PointsFile      string `yaml:"points_file" validate:"required"`
	RailNetworkFile string `yaml:"rail_network_file" validate:"required"`

	// CacheDSN selects the route cache backend. Empty uses files in CacheDir.
	CacheDSN        string `yaml:"cache_dsn"`
	MemoryCacheSize int    `yaml:"memory_cache_size" validate:"gte=0"`
	// CacheMaxAgeDays prunes older SQL cache rows at startup. 0 keeps all.
	CacheMaxAgeDays int    `yaml:"cache_max_age_days" validate:"gte=0"`

	OSRMURL        string  `yaml:"osrm_url" validate:"required,url"`
	OverpassURL    string  `yaml:"overpass_url" validate:"required,url"`
	SearchRadius   float64 `yaml:"search_radius_m" validate:"gt=0"`
	HTTPTimeoutSec int     `yaml:"http_timeout_sec" validate:"gt=0"`
	ResolveWorkers int     `yaml:"resolve_workers" validate:"gte=1"`

	AnimationDuration float64 `yaml:"animation_duration_sec" validate:"gt=0"`
	MinGapFraction    float64 `yaml:"min_gap_fraction" validate:"gte=0,lte=1"`
	PauseMultiplier   float64 `yaml:"pause_multiplier" validate:"gte=0,lte=1"`
	BBoxScale         float64 `yaml:"bbox_scale" validate:"gte=0"`
	MaxTravel         float64 `yaml:"max_travel_sec" validate:"gt=0"`
	MinIdle           float64 `yaml:"min_idle_sec" validate:"gte=0"`
	IdleShow          float64 `yaml:"idle_show_sec" validate:"gte=0"`

	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix" validate:"required"`
	LogNATSSubjects   bool   `yaml:"log_nats_subjects"`
	MetricsAddr       string `yaml:"metrics_addr"`
	LogFormat         string `yaml:"log_format" validate:"omitempty,oneof=json console"`
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func defaults() *Config {
	return &Config{
		MemoryCacheSize:   1024,
		OSRMURL:           "https://router.project-osrm.org",
		OverpassURL:       "https://overpass-api.de/api/interpreter",
		SearchRadius:      5000,
		HTTPTimeoutSec:    60,
		ResolveWorkers:    4,
		AnimationDuration: 600,
		MinGapFraction:    0.1,
		PauseMultiplier:   0.1,
		BBoxScale:         0.5,
		MaxTravel:         10,
		MinIdle:           5,
		IdleShow:          2.5,
		NATSSubjectPrefix: "animator",
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE, then the
// environment. Later sources win. Directories not set anywhere are derived
// from ANIMATOR_HOME.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	setString(&cfg.Home, "ANIMATOR_HOME")
	setString(&cfg.InputDir, "INPUT_DIR")
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.PointsFile, "POINTS_FILE")
	setString(&cfg.RailNetworkFile, "RAIL_NETWORK_FILE")
	setString(&cfg.CacheDSN, "CACHE_DSN")
	setString(&cfg.OSRMURL, "OSRM_URL")
	setString(&cfg.OverpassURL, "OVERPASS_URL")
	setString(&cfg.NATSURL, "NATS_URL")
	setString(&cfg.NATSSubjectPrefix, "NATS_SUBJECT_PREFIX")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setBool(&cfg.LogNATSSubjects, "LOG_NATS_SUBJECTS")

	for _, s := range []struct {
		dst *int
		key string
	}{
		{&cfg.MemoryCacheSize, "MEMORY_CACHE_SIZE"},
		{&cfg.CacheMaxAgeDays, "CACHE_MAX_AGE_DAYS"},
		{&cfg.HTTPTimeoutSec, "HTTP_TIMEOUT_SEC"},
		{&cfg.ResolveWorkers, "RESOLVE_WORKERS"},
	} {
		if err := setInt(s.dst, s.key); err != nil {
			return nil, err
		}
	}
	for _, s := range []struct {
		dst *float64
		key string
	}{
		{&cfg.SearchRadius, "SEARCH_RADIUS_M"},
		{&cfg.AnimationDuration, "ANIMATION_DURATION_SEC"},
		{&cfg.MinGapFraction, "MIN_GAP_FRACTION"},
		{&cfg.PauseMultiplier, "PAUSE_MULTIPLIER"},
		{&cfg.BBoxScale, "BBOX_SCALE"},
		{&cfg.MaxTravel, "MAX_TRAVEL_SEC"},
		{&cfg.MinIdle, "MIN_IDLE_SEC"},
		{&cfg.IdleShow, "IDLE_SHOW_SEC"},
	} {
		if err := setFloat(s.dst, s.key); err != nil {
			return nil, err
		}
	}

	cfg.fillPaths()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) fillPaths() {
	if c.Home == "" {
		c.Home = defaultHome()
	}
	if c.InputDir == "" {
		c.InputDir = filepath.Join(c.Home, "input")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.Home, "output")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.Home, "cache")
	}
	if c.PointsFile == "" {
		c.PointsFile = filepath.Join(c.InputDir, "points.json")
	}
	if c.RailNetworkFile == "" {
		c.RailNetworkFile = filepath.Join(c.CacheDir, "rail_network.geojson")
	}
}

// defaultHome prefers ~/Dokumente/gps-animator when it exists and falls back
// to ~/Documents/gps-animator.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	de := filepath.Join(home, "Dokumente", "gps-animator")
	if st, err := os.Stat(de); err == nil && st.IsDir() {
		return de
	}
	return filepath.Join(home, "Documents", "gps-animator")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		*dst = true
	default:
		*dst = false
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = f
	return nil
}
