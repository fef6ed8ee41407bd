// Package anim runs the planning pipeline: it resolves every edge of a
// timeline, stitches the geometries, compresses the schedule and derives the
// per-step headings the renderer needs.
package anim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"gps-animator/internal/geom"
	"gps-animator/internal/heading"
	"gps-animator/internal/route"
	"gps-animator/internal/schedule"
	"gps-animator/internal/stitch"
	"gps-animator/internal/trip"
)

// Skip reasons reported for edges left out of the plan.
const (
	ReasonOpenTime        = "open_time"
	ReasonNoRoute         = "no_route"
	ReasonNoRailLine      = "no_rail_line"
	ReasonSegmentNotFound = "segment_not_found"
	ReasonTimeout         = "timeout"
	ReasonError           = "error"
)

// Reason classifies a per-edge failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, trip.ErrOpenTime):
		return ReasonOpenTime
	case errors.Is(err, route.ErrNoRouteFound):
		return ReasonNoRoute
	case errors.Is(err, route.ErrNoMatchingRailLine):
		return ReasonNoRailLine
	case errors.Is(err, geom.ErrSegmentNotFound):
		return ReasonSegmentNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	}
	return ReasonError
}

// MarkerScale multiplies a waypoint's icon scale.
const MarkerScale = 1.5

type Resolver interface {
	Resolve(ctx context.Context, e trip.Edge, rail []route.RailLine) (route.Segment, error)
}

type Metrics interface {
	EdgeResolved(mode string)
	EdgeSkipped(mode, reason string)
	RailLinesLoaded(n int)
	PlanBuilt(elapsed time.Duration, animation float64)
}

type Options struct {
	Schedule  schedule.Options
	Heading   heading.Options
	BBoxScale float64
	Workers   int
}

func DefaultOptions() Options {
	return Options{
		Schedule:  schedule.DefaultOptions(),
		Heading:   heading.DefaultOptions(),
		BBoxScale: 0.5,
		Workers:   4,
	}
}

// EdgeResult is the outcome of resolving one edge. Err is nil on success.
type EdgeResult struct {
	Edge    trip.Edge
	Segment route.Segment
	Err     error
}

type Planner struct {
	logger   *zap.Logger
	resolver Resolver
	rail     route.RailProvider
	opts     Options
	metrics  Metrics

	// Stitcher orders the resolved segments. Defaults to stitch.Greedy.
	Stitcher stitch.Stitcher
	// OnEdge, if set, is called once per edge as soon as it is resolved.
	// Calls may come from several goroutines.
	OnEdge func(EdgeResult)
}

// NewPlanner builds a planner. rail may be nil when no timeline has train
// legs; m may be nil.
func NewPlanner(logger *zap.Logger, resolver Resolver, rail route.RailProvider, opts Options, m Metrics) *Planner {
	return &Planner{
		logger:   logger,
		resolver: resolver,
		rail:     rail,
		opts:     opts,
		metrics:  m,
		Stitcher: stitch.Greedy{},
	}
}

// Build plans the animation of tl. Edges that cannot be resolved are listed
// in Plan.Skipped; an error is returned only when no schedule can be made.
func (p *Planner) Build(ctx context.Context, tl *trip.Timeline) (*Plan, error) {
	start := time.Now()
	edges := tl.Edges()
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: timeline has no edges", schedule.ErrDegenerateTimeline)
	}

	bound := geom.Expand(tl.Bounds(), p.opts.BBoxScale)
	frame, err := geom.NewFrame(bound)
	if err != nil {
		return nil, fmt.Errorf("scene frame for %v: %w", bound, err)
	}

	rail := p.railLines(ctx, edges, bound)
	results := p.resolveAll(ctx, edges, rail)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan := &Plan{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Bound:     bound,
		Frame:     frame,
		Duration:  p.opts.Schedule.Duration,
	}
	var (
		kept    []EdgeResult
		lines   []orb.LineString
		windows []schedule.Window
	)
	for _, r := range results {
		mode := r.Edge.Mode.String()
		if r.Err != nil {
			reason := Reason(r.Err)
			p.logger.Warn("skipping edge",
				zap.Int("edge", r.Edge.Index),
				zap.String("leg", r.Edge.String()),
				zap.String("reason", reason),
				zap.Error(r.Err),
			)
			plan.Skipped = append(plan.Skipped, Skipped{
				Edge:   r.Edge.Index,
				From:   r.Edge.From.Name,
				To:     r.Edge.To.Name,
				Mode:   r.Edge.Mode,
				Reason: reason,
				Error:  r.Err.Error(),
			})
			if p.metrics != nil {
				p.metrics.EdgeSkipped(mode, reason)
			}
			continue
		}
		dep, arr, _ := r.Edge.Window()
		kept = append(kept, r)
		lines = append(lines, r.Segment.Points)
		windows = append(windows, schedule.Window{Departure: dep, Arrival: arr})
		if p.metrics != nil {
			p.metrics.EdgeResolved(mode)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: all %d edges skipped", schedule.ErrDegenerateTimeline, len(edges))
	}

	slots, err := schedule.Allocate(windows, p.opts.Schedule)
	if err != nil {
		return nil, err
	}
	stitched := p.Stitcher.Stitch(lines)
	for i, r := range kept {
		seg := r.Segment
		seg.Points = stitched[i]
		plan.Segments = append(plan.Segments, seg)
		plan.Tracks = append(plan.Tracks, heading.Plan(r.Edge.Index, r.Edge.Mode, stitched[i], slots[i], p.opts.Heading))
	}
	plan.Timeline = slots
	plan.Markers = markers(tl.Waypoints(), frame)

	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.PlanBuilt(elapsed, plan.Duration)
	}
	p.logger.Info("plan built",
		zap.String("run_id", plan.RunID),
		zap.Int("edges", len(edges)),
		zap.Int("segments", len(plan.Segments)),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Duration("elapsed", elapsed),
	)
	return plan, nil
}

func (p *Planner) railLines(ctx context.Context, edges []trip.Edge, bound orb.Bound) []route.RailLine {
	if p.rail == nil {
		return nil
	}
	needed := false
	for _, e := range edges {
		if e.Mode == trip.ModeTrain {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	lines, err := p.rail.RailLines(ctx, bound)
	if err != nil {
		p.logger.Warn("rail network unavailable", zap.Error(err))
		return nil
	}
	if p.metrics != nil {
		p.metrics.RailLinesLoaded(len(lines))
	}
	return lines
}

// resolveAll resolves edges on a bounded number of goroutines. Results keep
// the edge order.
func (p *Planner) resolveAll(ctx context.Context, edges []trip.Edge, rail []route.RailLine) []EdgeResult {
	results := make([]EdgeResult, len(edges))
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(edges) {
		workers = len(edges)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.resolve(ctx, edges[i], rail)
				if p.OnEdge != nil {
					p.OnEdge(results[i])
				}
			}
		}()
	}
feed:
	for i := range edges {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (p *Planner) resolve(ctx context.Context, e trip.Edge, rail []route.RailLine) EdgeResult {
	if _, _, err := e.Window(); err != nil {
		return EdgeResult{Edge: e, Err: err}
	}
	seg, err := p.resolver.Resolve(ctx, e, rail)
	if err != nil {
		return EdgeResult{Edge: e, Err: fmt.Errorf("edge %d %s: %w", e.Index, e, err)}
	}
	p.logger.Debug("edge resolved", zap.Int("edge", e.Index), zap.String("leg", e.String()), zap.Int("points", len(seg.Points)))
	return EdgeResult{Edge: e, Segment: seg}
}

func markers(wps []trip.Waypoint, f geom.Frame) []Marker {
	var out []Marker
	for _, w := range wps {
		if w.Icon == "" {
			continue
		}
		out = append(out, Marker{
			Name:  w.Name,
			Icon:  w.Icon,
			At:    f.ToScene(geom.Mercator(w.Coord())),
			Scale: MarkerScale * w.Scale(),
		})
	}
	return out
}
