package anim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"gps-animator/internal/geom"
	"gps-animator/internal/heading"
	"gps-animator/internal/route"
	"gps-animator/internal/schedule"
	"gps-animator/internal/trip"
)

// Plan is everything the renderer needs. Segments, Timeline and Tracks are
// index-aligned; coordinates are Web Mercator meters except for Markers,
// which are in scene units.
type Plan struct {
	RunID     string          `json:"run_id"`
	Name      string          `json:"name,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Duration  float64         `json:"duration"`
	Bound     orb.Bound       `json:"bound"`
	Frame     geom.Frame      `json:"frame"`
	Segments  []route.Segment `json:"segments"`
	Timeline  []schedule.Slot `json:"timeline"`
	Tracks    []heading.Track `json:"tracks"`
	Markers   []Marker        `json:"markers,omitempty"`
	Skipped   []Skipped       `json:"skipped,omitempty"`
}

type Marker struct {
	Name  string    `json:"name"`
	Icon  string    `json:"icon"`
	At    orb.Point `json:"at"`
	Scale float64   `json:"scale"`
}

// Skipped records an edge that was left out of the plan.
type Skipped struct {
	Edge   int       `json:"edge"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Mode   trip.Mode `json:"mode"`
	Reason string    `json:"reason"`
	Error  string    `json:"error"`
}

// Paths returns the stitched geometry of every segment.
func (p *Plan) Paths() []orb.LineString {
	out := make([]orb.LineString, len(p.Segments))
	for i, s := range p.Segments {
		out[i] = s.Points
	}
	return out
}

func (p *Plan) Colors() []string {
	out := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		out[i] = s.Color
	}
	return out
}

// GeoJSON returns the stitched segments as WGS84 line features.
func (p *Plan) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, s := range p.Segments {
		f := geojson.NewFeature(geom.GeographicLine(s.Points))
		f.Properties["edge"] = s.Edge
		f.Properties["mode"] = s.Mode.String()
		f.Properties["color"] = s.Color
		if i < len(p.Timeline) {
			f.Properties["start"] = p.Timeline[i].Start
			f.Properties["end"] = p.Timeline[i].End
		}
		fc.Append(f)
	}
	return fc
}

// Write stores the plan as plan-<run>.json and its paths as
// paths-<run>.geojson in dir, returning both file names.
func (p *Plan) Write(dir string) (planFile, pathsFile string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	planFile = filepath.Join(dir, fmt.Sprintf("plan-%s.json", p.RunID))
	pathsFile = filepath.Join(dir, fmt.Sprintf("paths-%s.geojson", p.RunID))

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(planFile, b, 0o644); err != nil {
		return "", "", err
	}
	b, err = p.GeoJSON().MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("encode paths: %w", err)
	}
	if err := os.WriteFile(pathsFile, b, 0o644); err != nil {
		return "", "", err
	}
	return planFile, pathsFile, nil
}
