package geom

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrSegmentNotFound = errors.New("segment not found")

// Extract returns the part of line that starts at the first vertex equal to
// start and ends at the first vertex equal to end after it. Both points are
// compared exactly, so they must be taken from line's own vertices.
//
// An end seen before any start is remembered but does not close anything; a
// later end is still needed.
func Extract(line orb.LineString, start, end orb.Point) (orb.LineString, error) {
	var (
		out        orb.LineString
		collecting bool
		endFirst   bool
	)
	for _, p := range line {
		if !collecting && p.Equal(start) {
			collecting = true
			out = append(out, p)
			if start.Equal(end) {
				return out, nil
			}
			continue
		}
		if !p.Equal(end) {
			if collecting {
				out = append(out, p)
			}
			continue
		}
		if collecting {
			return append(out, p), nil
		}
		endFirst = true
	}
	switch {
	case collecting:
		return nil, fmt.Errorf("end %v not after start %v: %w", end, start, ErrSegmentNotFound)
	case endFirst:
		return nil, fmt.Errorf("end %v precedes start %v: %w", end, start, ErrSegmentNotFound)
	}
	return nil, fmt.Errorf("start %v not on line: %w", start, ErrSegmentNotFound)
}

// Length is the planar length of ls.
func Length(ls orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(ls); i++ {
		total += planar.Distance(ls[i-1], ls[i])
	}
	return total
}

// Reverse returns a reversed copy of ls.
func Reverse(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}
