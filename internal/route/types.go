// Package route resolves one geometry per timeline edge: routed modes go
// through a routing oracle behind the route cache, rail legs are cut out of
// the nearest line of the rail network.
package route

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"gps-animator/internal/trip"
)

var (
	ErrNoRouteFound       = errors.New("no route found")
	ErrNoMatchingRailLine = errors.New("no matching rail line")
)

// DefaultRailColor is used for rail lines without a colour tag.
const DefaultRailColor = "#ff0000"

// Segment is the resolved geometry of one edge in Web Mercator meters.
type Segment struct {
	Edge   int            `json:"edge"`
	Mode   trip.Mode      `json:"mode"`
	Color  string         `json:"color"`
	Points orb.LineString `json:"points"`
}

// Router finds the shortest path between two geographic points (x = lon,
// y = lat) and returns it projected to Web Mercator. It returns an error
// wrapping ErrNoRouteFound when no path exists.
type Router interface {
	ShortestPath(ctx context.Context, from, to orb.Point, mode trip.Mode) (orb.LineString, error)
}

// RailLine is one line of the rail network in Web Mercator meters.
type RailLine struct {
	Name     string
	Color    string
	Geometry orb.LineString
}

// RailProvider lists the rail lines inside a geographic bound.
type RailProvider interface {
	RailLines(ctx context.Context, bound orb.Bound) ([]RailLine, error)
}
