package route

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"gps-animator/internal/cache"
	"gps-animator/internal/geom"
	"gps-animator/internal/trip"
)

type Metrics interface {
	ObserveOracle(mode string, d time.Duration, err error)
}

// Resolver turns an edge into a Segment.
type Resolver struct {
	logger  *zap.Logger
	router  Router
	routes  *cache.Routes
	metrics Metrics
}

// NewResolver builds a resolver. routes may be nil to disable memoization.
func NewResolver(logger *zap.Logger, router Router, routes *cache.Routes, m Metrics) *Resolver {
	return &Resolver{logger: logger, router: router, routes: routes, metrics: m}
}

// Resolve returns the geometry of e. rail is the network used for train
// edges; it may be empty for timelines without rail legs.
func (r *Resolver) Resolve(ctx context.Context, e trip.Edge, rail []RailLine) (Segment, error) {
	seg := Segment{Edge: e.Index, Mode: e.Mode, Color: e.Mode.Color()}
	switch e.Mode {
	case trip.ModeWalking, trip.ModeCar:
		pts, err := r.routed(ctx, e)
		if err != nil {
			return seg, err
		}
		seg.Points = pts
	case trip.ModeTrain:
		line, cut, err := MatchRail(rail, geom.Mercator(e.From.Coord()), geom.Mercator(e.To.Coord()))
		if err != nil {
			return seg, err
		}
		seg.Points = cut
		seg.Color = line.Color
		if seg.Color == "" {
			seg.Color = DefaultRailColor
		}
		r.logger.Debug("matched rail line", zap.String("edge", e.String()), zap.String("line", line.Name), zap.Int("points", len(cut)))
	default:
		return seg, fmt.Errorf("edge %d: no route for mode %s", e.Index, e.Mode)
	}
	return seg, nil
}

func (r *Resolver) routed(ctx context.Context, e trip.Edge) (orb.LineString, error) {
	from, to := e.From.Coord(), e.To.Coord()
	compute := func(ctx context.Context) (orb.LineString, error) {
		start := time.Now()
		ls, err := r.router.ShortestPath(ctx, from, to, e.Mode)
		if r.metrics != nil {
			r.metrics.ObserveOracle(e.Mode.String(), time.Since(start), err)
		}
		return ls, err
	}
	if r.routes == nil {
		return compute(ctx)
	}
	return r.routes.Fetch(ctx, cache.Key(e.Mode.String(), from, to), compute)
}
