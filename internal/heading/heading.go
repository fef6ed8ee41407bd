// Package heading turns a stitched edge into animated steps, each with a
// duration and a sprite direction.
//
// Bearings follow the map convention: 0 is up (+y) and angles grow
// clockwise, so +x is 90.
package heading

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"gps-animator/internal/geom"
	"gps-animator/internal/schedule"
	"gps-animator/internal/trip"
)

// Bearing returns the direction from a to b in degrees in [0, 360).
func Bearing(a, b orb.Point) float64 {
	deg := math.Atan2(b.X()-a.X(), b.Y()-a.Y()) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Directions returns n evenly spaced angles starting at 0.
func Directions(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * 360 / float64(n)
	}
	return out
}

// Nearest returns the entry of dirs closest to angle, measuring around the
// circle so 355 is close to 0. Ties go to the earlier entry.
func Nearest(dirs []float64, angle float64) float64 {
	best, bestDiff := angle, math.Inf(1)
	for _, d := range dirs {
		diff := math.Mod(math.Abs(angle-d), 360)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff < bestDiff {
			best, bestDiff = d, diff
		}
	}
	return best
}

// Mean returns the circular mean of angles in [0, 360).
func Mean(angles []float64) float64 {
	var sin, cos float64
	for _, a := range angles {
		r := a * math.Pi / 180
		sin += math.Sin(r)
		cos += math.Cos(r)
	}
	deg := math.Atan2(sin, cos) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

var (
	walkingDirections = Directions(4)
	vehicleDirections = Directions(64)
)

type profile struct {
	window     int
	directions []float64
	minStep    float64
}

func profileFor(m trip.Mode) profile {
	if m == trip.ModeWalking {
		return profile{window: 5, directions: walkingDirections, minStep: 0.5}
	}
	return profile{window: 1, directions: vehicleDirections, minStep: 0.15}
}

// Options bound the animated durations.
type Options struct {
	MaxTravel float64 // longest animated travel per edge, seconds
	MinIdle   float64 // shortest dwell that earns an idle marker
	IdleShow  float64 // how long the idle marker is shown
}

func DefaultOptions() Options {
	return Options{MaxTravel: 10, MinIdle: 5, IdleShow: 2.5}
}

// maxIdle caps the dwell considered for the idle marker.
const maxIdle = 10.0

// zeroStep is the duration given to steps of zero length.
const zeroStep = 1.0 / 60

type Step struct {
	From     orb.Point `json:"from"`
	To       orb.Point `json:"to"`
	Heading  float64   `json:"heading"`
	Duration float64   `json:"duration"`
}

type Idle struct {
	At    orb.Point `json:"at"`
	Dwell float64   `json:"dwell"`
	Show  float64   `json:"show"`
}

// Track is the animation of one edge.
type Track struct {
	Edge  int       `json:"edge"`
	Mode  trip.Mode `json:"mode"`
	Steps []Step    `json:"steps"`
	Idle  *Idle     `json:"idle,omitempty"`
}

// Plan splits path into steps. The travel time of the slot, capped at
// opt.MaxTravel, is shared out in proportion to step length. Steps shorter
// than the mode's minimum are merged into the following one; the step
// reaching the final point is always kept.
//
// Each heading is the circular mean of the bearing from the previous point
// and the bearings from up to five (walking) or one (other modes) earlier
// points, snapped to 4 or 64 directions.
func Plan(edge int, mode trip.Mode, path orb.LineString, slot schedule.Slot, opt Options) Track {
	tr := Track{Edge: edge, Mode: mode}
	if len(path) == 0 {
		return tr
	}
	prof := profileFor(mode)
	total := geom.Length(path)
	travel := math.Min(slot.Travel(), opt.MaxTravel)

	from := path[0]
	var window []orb.Point
	for i := 1; i < len(path); i++ {
		to := path[i]
		if len(window) > prof.window {
			window = window[1:]
		}
		d := 0.0
		if total > 0 {
			d = planar.Distance(from, to) / total * travel
		}
		if d <= prof.minStep && i != len(path)-1 {
			continue
		}
		if d == 0 {
			d = zeroStep
		}

		angles := make([]float64, 0, len(window)+1)
		angles = append(angles, Bearing(from, to))
		for _, p := range window {
			angles = append(angles, Bearing(p, to))
		}
		tr.Steps = append(tr.Steps, Step{
			From:     from,
			To:       to,
			Heading:  Nearest(prof.directions, Mean(angles)),
			Duration: d,
		})
		from = to
		window = append(window, to)
	}

	if slot.Paused {
		dwell := math.Min(slot.Idle-slot.End, maxIdle)
		if dwell > opt.MinIdle {
			tr.Idle = &Idle{At: path[len(path)-1], Dwell: dwell, Show: opt.IdleShow}
		}
	}
	return tr
}
