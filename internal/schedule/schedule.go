// Package schedule compresses the real departure and arrival times of a trip
// onto a fixed animation length.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrDegenerateTimeline = errors.New("degenerate timeline")

// Window is the real departure and arrival of one edge, in seconds.
type Window struct {
	Departure int
	Arrival   int
}

type Options struct {
	Duration float64 // total animation length in seconds
	MinGap   float64 // fraction of Duration a dwell must reach to show a pause
	Pause    float64 // share of the dwell kept as visible pause
}

func DefaultOptions() Options {
	return Options{Duration: 600, MinGap: 0.1, Pause: 0.1}
}

// Slot is the animated time span of one edge. When Paused is set the
// traveller idles at the arrival point until Idle.
type Slot struct {
	Start  float64
	End    float64
	Idle   float64
	Paused bool
}

// Travel is the animated travel time of the edge.
func (s Slot) Travel() float64 { return s.End - s.Start }

// MarshalJSON encodes a slot as [start, end] or [start, end, idle].
func (s Slot) MarshalJSON() ([]byte, error) {
	if s.Paused {
		return json.Marshal([3]float64{s.Start, s.End, s.Idle})
	}
	return json.Marshal([2]float64{s.Start, s.End})
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch len(v) {
	case 2:
		*s = Slot{Start: v[0], End: v[1]}
	case 3:
		*s = Slot{Start: v[0], End: v[1], Idle: v[2], Paused: true}
	default:
		return fmt.Errorf("slot: want 2 or 3 values, got %d", len(v))
	}
	return nil
}

// Allocate rescales windows so the first departure maps to 0 and the last
// arrival to opt.Duration. An edge followed by a dwell of at least
// opt.MinGap*opt.Duration gets a pause of opt.Pause times that dwell. The
// last edge never pauses.
func Allocate(windows []Window, opt Options) ([]Slot, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no edges", ErrDegenerateTimeline)
	}
	if opt.Duration <= 0 {
		return nil, fmt.Errorf("invalid animation duration %v", opt.Duration)
	}

	raw := make([]float64, 0, 2*len(windows))
	for _, w := range windows {
		raw = append(raw, float64(w.Departure), float64(w.Arrival))
	}
	t0 := raw[0]
	total := raw[len(raw)-1] - t0
	if total <= 0 {
		return nil, fmt.Errorf("%w: elapsed time %vs", ErrDegenerateTimeline, total)
	}
	for i, t := range raw {
		raw[i] = (t - t0) / total * opt.Duration
	}

	minGap := opt.MinGap * opt.Duration
	slots := make([]Slot, len(windows))
	for i := range windows {
		s, e := raw[2*i], raw[2*i+1]
		slots[i] = Slot{Start: s, End: e}
		if i == len(windows)-1 {
			continue
		}
		if gap := raw[2*i+2] - e; gap >= minGap {
			slots[i].Idle = e + opt.Pause*gap
			slots[i].Paused = true
		}
	}
	return slots, nil
}
