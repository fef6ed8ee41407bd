package route

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"gps-animator/internal/geom"
)

// MatchRail picks the rail line closest to both ends of a leg and cuts the
// leg out of it. start and end are in Web Mercator meters.
//
// For each line every vertex is assigned to whichever endpoint it is closer
// to (ties go to end), and the line scores the sum of the two smallest
// distances. The lowest score wins; equal scores keep the earlier line. The
// returned polyline runs from the start cut point to the end cut point.
func MatchRail(lines []RailLine, start, end orb.Point) (RailLine, orb.LineString, error) {
	best := -1
	bestSum := math.Inf(1)
	var bestStart, bestEnd int
	for i, l := range lines {
		si, ei, sum := nearestPair(l.Geometry, start, end)
		if si < 0 || ei < 0 {
			continue
		}
		if sum < bestSum {
			best, bestSum, bestStart, bestEnd = i, sum, si, ei
		}
	}
	if best < 0 {
		return RailLine{}, nil, fmt.Errorf("%w: %d candidate lines", ErrNoMatchingRailLine, len(lines))
	}

	line := lines[best]
	lo, hi := bestStart, bestEnd
	if lo > hi {
		lo, hi = hi, lo
	}
	cut, err := geom.Extract(line.Geometry, line.Geometry[lo], line.Geometry[hi])
	if err != nil {
		return line, nil, fmt.Errorf("cut %q: %w", line.Name, err)
	}
	if bestStart > bestEnd {
		cut = geom.Reverse(cut)
	}
	return line, cut, nil
}

// nearestPair returns the index of the vertex nearest to start among those
// closer to start than to end, the same for end, and the summed distance.
// An index is -1 when no vertex falls on that side.
func nearestPair(ls orb.LineString, start, end orb.Point) (si, ei int, sum float64) {
	si, ei = -1, -1
	ds, de := math.Inf(1), math.Inf(1)
	for j, p := range ls {
		a := planar.Distance(start, p)
		b := planar.Distance(end, p)
		if a < b {
			if a < ds {
				ds, si = a, j
			}
		} else if b < de {
			de, ei = b, j
		}
	}
	return si, ei, ds + de
}

// MergeLines joins lines with the same name and colour that meet end to end,
// so a rail line split into many ways becomes one geometry.
func MergeLines(lines []RailLine) []RailLine {
	out := make([]RailLine, len(lines))
	copy(out, lines)
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if !sameLine(out[i], out[j]) {
					continue
				}
				joined, ok := join(out[i].Geometry, out[j].Geometry)
				if !ok {
					continue
				}
				out[i].Geometry = joined
				out = append(out[:j], out[j+1:]...)
				merged = true
				break
			}
		}
	}
	return out
}

func sameLine(a, b RailLine) bool {
	if a.Name == "" && a.Color == "" {
		return false
	}
	return a.Name == b.Name && a.Color == b.Color
}

func join(a, b orb.LineString) (orb.LineString, bool) {
	if len(a) == 0 || len(b) == 0 {
		return nil, false
	}
	aFirst, aLast := a[0], a[len(a)-1]
	bFirst, bLast := b[0], b[len(b)-1]
	switch {
	case aLast.Equal(bFirst):
		return concat(a, b[1:]), true
	case bLast.Equal(aFirst):
		return concat(b, a[1:]), true
	case aLast.Equal(bLast):
		return concat(a, geom.Reverse(b)[1:]), true
	case aFirst.Equal(bFirst):
		return concat(geom.Reverse(a), b[1:]), true
	}
	return nil, false
}

func concat(a, b orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
