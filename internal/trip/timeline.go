package trip

import (
	"sort"

	"github.com/paulmach/orb"
)

// Timeline is a mutable collection of stops. Insertion order is kept; every
// read that cares about order sorts by arrival on demand.
type Timeline struct {
	stops []Stop
}

func NewTimeline(stops ...Stop) *Timeline {
	t := &Timeline{}
	t.stops = append(t.stops, stops...)
	return t
}

func (t *Timeline) Add(w Waypoint, m Mode) {
	t.stops = append(t.stops, Stop{Waypoint: w, Mode: m})
}

// Remove deletes the first stop with the given name.
func (t *Timeline) Remove(name string) bool {
	for i, s := range t.stops {
		if s.Name == name {
			t.stops = append(t.stops[:i], t.stops[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Timeline) Len() int { return len(t.stops) }

// Stops returns a copy sorted by arrival. Open starts sort first, ties keep
// insertion order.
func (t *Timeline) Stops() []Stop {
	out := make([]Stop, len(t.stops))
	copy(out, t.stops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Arrival.order() < out[j].Arrival.order()
	})
	return out
}

func (t *Timeline) Waypoints() []Waypoint {
	stops := t.Stops()
	out := make([]Waypoint, len(stops))
	for i, s := range stops {
		out[i] = s.Waypoint
	}
	return out
}

func (t *Timeline) ByName(name string) (Waypoint, bool) {
	for _, s := range t.stops {
		if s.Name == name {
			return s.Waypoint, true
		}
	}
	return Waypoint{}, false
}

// At returns the first waypoint whose time window contains sec.
func (t *Timeline) At(sec int) (Waypoint, bool) {
	for _, s := range t.stops {
		if s.covers(sec) {
			return s.Waypoint, true
		}
	}
	return Waypoint{}, false
}

// AtCoord returns the waypoint at exactly the given coordinates.
func (t *Timeline) AtCoord(lat, lon float64) (Waypoint, bool) {
	for _, s := range t.stops {
		if s.Lat == lat && s.Lon == lon {
			return s.Waypoint, true
		}
	}
	return Waypoint{}, false
}

// Edges lists the legs in arrival order. The walk stops at the first stop
// whose mode is ModeEnd.
func (t *Timeline) Edges() []Edge {
	stops := t.Stops()
	var edges []Edge
	for i := 0; i+1 < len(stops); i++ {
		if stops[i].Mode == ModeEnd {
			break
		}
		edges = append(edges, Edge{
			Index: len(edges),
			From:  stops[i].Waypoint,
			To:    stops[i+1].Waypoint,
			Mode:  stops[i].Mode,
		})
	}
	return edges
}

// Bounds returns the geographic extent of all waypoints (x = lon, y = lat).
func (t *Timeline) Bounds() orb.Bound {
	if len(t.stops) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: t.stops[0].Coord(), Max: t.stops[0].Coord()}
	for _, s := range t.stops[1:] {
		b = b.Extend(s.Coord())
	}
	return b
}
