// Package stitch joins per-edge route geometries into one path that runs
// from the first waypoint to the last.
package stitch

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"gps-animator/internal/geom"
)

// Stitcher orders and bridges segments so that segment i ends where segment
// i+1 starts. The result is index-aligned with the input.
type Stitcher interface {
	Stitch(segments []orb.LineString) []orb.LineString
}

// Greedy orients every segment against the end of the path built so far.
// A segment is reversed when its last point is strictly closer to that end
// than its first point; ties keep the segment as is. When the oriented
// segment still does not start at the running end, the running end is
// prepended as a bridge vertex.
//
// The decision is local to each pair, so a segment whose two ends are about
// equally far from the running end can come out backwards.
type Greedy struct{}

func (Greedy) Stitch(segments []orb.LineString) []orb.LineString {
	out := make([]orb.LineString, len(segments))
	var (
		last    orb.Point
		started bool
	)
	for i, seg := range segments {
		if len(seg) == 0 {
			out[i] = orb.LineString{}
			continue
		}
		if !started {
			out[i] = append(orb.LineString(nil), seg...)
			last = seg[len(seg)-1]
			started = true
			continue
		}
		if planar.Distance(seg[0], last) > planar.Distance(seg[len(seg)-1], last) {
			seg = geom.Reverse(seg)
		} else {
			seg = append(orb.LineString(nil), seg...)
		}
		if !seg[0].Equal(last) {
			seg = append(orb.LineString{last}, seg...)
		}
		out[i] = seg
		last = seg[len(seg)-1]
	}
	return out
}

// Flatten concatenates stitched segments into a single polyline, dropping
// repeated consecutive vertices such as the shared junction points.
func Flatten(segments []orb.LineString) orb.LineString {
	var out orb.LineString
	for _, seg := range segments {
		for _, p := range seg {
			if len(out) > 0 && out[len(out)-1].Equal(p) {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
