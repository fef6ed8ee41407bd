// Package geom holds the planar geometry shared by the resolver, stitcher and
// planner: Web Mercator projection, bounding boxes, the scene frame and
// sub-polyline extraction.
package geom

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// MaxLatitude is the Web Mercator latitude limit.
const MaxLatitude = 85.05112878

// Mercator projects a WGS84 point (x = lon, y = lat) to EPSG:3857 meters.
// Latitude is clamped so the poles stay finite.
func Mercator(p orb.Point) orb.Point {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat()))
	return project.Point(orb.Point{p.Lon(), lat}, project.WGS84.ToMercator)
}

// MercatorLine projects every vertex of ls.
func MercatorLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = Mercator(p)
	}
	return out
}

// Expand grows b by factor times its width and height on every side and
// rounds the result to 4 decimals.
func Expand(b orb.Bound, factor float64) orb.Bound {
	dx := (b.Max.X() - b.Min.X()) * factor
	dy := (b.Max.Y() - b.Min.Y()) * factor
	return orb.Bound{
		Min: orb.Point{round4(b.Min.X() - dx), round4(b.Min.Y() - dy)},
		Max: orb.Point{round4(b.Max.X() + dx), round4(b.Max.Y() + dy)},
	}
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// SceneWidth is the width of the animation scene in scene units.
const SceneWidth = 12.0

var ErrEmptyFrame = errors.New("frame has non-positive extent")

// Frame maps Web Mercator coordinates onto a scene centred on the origin,
// SceneWidth wide with the height following the map's aspect ratio.
type Frame struct {
	Min    orb.Point `json:"min"`
	Max    orb.Point `json:"max"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

// NewFrame builds the frame for a geographic bound.
func NewFrame(geo orb.Bound) (Frame, error) {
	lo := Mercator(geo.Min)
	hi := Mercator(geo.Max)
	if hi.X() <= lo.X() || hi.Y() <= lo.Y() {
		return Frame{}, ErrEmptyFrame
	}
	w := hi.X() - lo.X()
	h := hi.Y() - lo.Y()
	return Frame{Min: lo, Max: hi, Width: SceneWidth, Height: SceneWidth * h / w}, nil
}

// ToScene converts a mercator point to scene coordinates.
func (f Frame) ToScene(p orb.Point) orb.Point {
	fx := (p.X() - f.Min.X()) / (f.Max.X() - f.Min.X())
	fy := (p.Y() - f.Min.Y()) / (f.Max.Y() - f.Min.Y())
	return orb.Point{fx*f.Width - f.Width/2, fy*f.Height - f.Height/2}
}

// Geographic converts a Web Mercator point back to WGS84 lon/lat.
func Geographic(p orb.Point) orb.Point {
	return project.Point(p, project.Mercator.ToWGS84)
}

// GeographicLine converts every vertex of ls back to WGS84.
func GeographicLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = Geographic(p)
	}
	return out
}
