package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"gps-animator/internal/anim"
	"gps-animator/internal/cache"
	"gps-animator/internal/config"
	"gps-animator/internal/db"
	"gps-animator/internal/metrics"
	"gps-animator/internal/publisher"
	"gps-animator/internal/route"
	"gps-animator/internal/trip"
)

func main() {
	points := flag.String("points", "", "timeline file (json, yaml, csv or gpx); overrides POINTS_FILE")
	output := flag.String("output", "", "output directory; overrides OUTPUT_DIR")
	duration := flag.Float64("duration", 0, "animation length in seconds; overrides ANIMATION_DURATION_SEC")
	name := flag.String("name", "", "trip name used in subjects and output (default: points file name)")
	flag.Parse()

	// Load configuration from .env, CONFIG_FILE and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *points != "" {
		cfg.PointsFile = *points
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *duration > 0 {
		cfg.AnimationDuration = *duration
	}
	if *name == "" {
		base := filepath.Base(cfg.PointsFile)
		*name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg, *name); err != nil {
		logger.Error("animation plan failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, name string) error {
	// Metrics setup. The interfaces stay nil without a collector.
	var (
		mcol        *metrics.Collector
		animMetrics anim.Metrics
		cacheMet    cache.Metrics
		routeMet    route.Metrics
		pubMetrics  publisher.PublisherMetrics
	)
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.AnimationDuration, cfg.ResolveWorkers)
		animMetrics, cacheMet, routeMet, pubMetrics = mcol, mcol, mcol, mcol
		srv := mcol.Serve(logger, cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store, closeStore, err := openStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tl, err := trip.Load(cfg.PointsFile)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	edges := tl.Edges()
	logger.Info("timeline loaded",
		zap.String("file", cfg.PointsFile),
		zap.Int("waypoints", tl.Len()),
		zap.Int("edges", len(edges)))

	routes := cache.NewRoutes(logger, store, cacheMet)
	osrm := route.NewOSRM(logger, cfg.OSRMURL, cfg.HTTPTimeout(), cfg.SearchRadius)
	resolver := route.NewResolver(logger, osrm, routes, routeMet)
	rail := route.NewSnapshot(logger, cfg.RailNetworkFile, route.NewOverpass(logger, cfg.OverpassURL, cfg.HTTPTimeout()))

	opts := anim.DefaultOptions()
	opts.Schedule.Duration = cfg.AnimationDuration
	opts.Schedule.MinGap = cfg.MinGapFraction
	opts.Schedule.Pause = cfg.PauseMultiplier
	opts.Heading.MaxTravel = cfg.MaxTravel
	opts.Heading.MinIdle = cfg.MinIdle
	opts.Heading.IdleShow = cfg.IdleShow
	opts.BBoxScale = cfg.BBoxScale
	opts.Workers = cfg.ResolveWorkers
	planner := anim.NewPlanner(logger, resolver, rail, opts, animMetrics)

	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(logger, cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, pubMetrics)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
	}

	bar := progressbar.Default(int64(len(edges)), "resolving edges")
	planner.OnEdge = func(r anim.EdgeResult) {
		_ = bar.Add(1)
		if pub == nil {
			return
		}
		if err := pub.PublishEdge(name, r); err != nil {
			logger.Warn("publish edge failed", zap.Int("edge", r.Edge.Index), zap.Error(err))
		}
	}

	plan, err := planner.Build(ctx, tl)
	_ = bar.Finish()
	if err != nil {
		return err
	}
	plan.Name = name

	planFile, pathsFile, err := plan.Write(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	if pub != nil {
		if err := pub.PublishPlan(name, plan); err != nil {
			logger.Warn("publish plan failed", zap.Error(err))
		}
	}
	logger.Info("animation plan written",
		zap.String("run_id", plan.RunID),
		zap.String("plan", planFile),
		zap.String("paths", pathsFile),
		zap.Int("segments", len(plan.Segments)),
		zap.Int("skipped", len(plan.Skipped)))
	return nil
}

// openStore picks the route cache backend: a SQL table when CACHE_DSN names
// a database, gob files otherwise, optionally fronted by an in-memory LRU.
func openStore(ctx context.Context, logger *zap.Logger, cfg *config.Config) (cache.Store, func(), error) {
	var (
		store cache.Store
		done  = func() {}
	)
	switch {
	case cfg.CacheDSN != "" && db.IsSQL(cfg.CacheDSN):
		conn, err := db.Open(cfg.CacheDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("cache db open: %w", err)
		}
		if err := db.Ping(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("cache db ping: %w", err)
		}
		sqlStore, err := cache.NewSQLStore(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		if cfg.CacheMaxAgeDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.CacheMaxAgeDays)
			n, err := db.PruneRoutes(ctx, conn, cutoff)
			if err != nil {
				logger.Warn("route cache prune failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("route cache pruned", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
			}
		}
		count, newest, err := db.RouteCacheStats(ctx, conn)
		if err != nil {
			logger.Warn("route cache stats failed", zap.Error(err))
		}
		logger.Info("route cache",
			zap.String("backend", conn.Dialect.String()),
			zap.String("dsn", db.Redact(cfg.CacheDSN)),
			zap.Int("routes", count),
			zap.Time("newest", newest))
		store = sqlStore
		done = func() { conn.Close() }
	default:
		dir := cfg.CacheDir
		if cfg.CacheDSN != "" {
			dir = cfg.CacheDSN
		}
		fileStore, err := cache.NewFileStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("cache dir: %w", err)
		}
		logger.Info("route cache", zap.String("backend", "files"), zap.String("dir", dir))
		store = fileStore
	}
	if cfg.MemoryCacheSize > 0 {
		store = cache.NewMemory(cfg.MemoryCacheSize, store)
	}
	return store, done, nil
}
