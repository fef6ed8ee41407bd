package route

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// Snapshot serves the rail network from a GeoJSON file and refreshes it from
// source when the file is missing, unreadable or covers a different bound.
// Geometries in the file are Web Mercator meters.
type Snapshot struct {
	logger *zap.Logger
	path   string
	source RailProvider
}

func NewSnapshot(logger *zap.Logger, path string, source RailProvider) *Snapshot {
	return &Snapshot{logger: logger, path: path, source: source}
}

func (s *Snapshot) RailLines(ctx context.Context, bound orb.Bound) ([]RailLine, error) {
	lines, err := s.load(bound)
	if err == nil {
		s.logger.Debug("rail network from snapshot", zap.String("path", s.path), zap.Int("lines", len(lines)))
		return lines, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("ignoring rail snapshot", zap.String("path", s.path), zap.Error(err))
	}
	if s.source == nil {
		return nil, fmt.Errorf("rail snapshot %s: %w", s.path, err)
	}

	lines, err = s.source.RailLines(ctx, bound)
	if err != nil {
		return nil, err
	}
	if err := WriteRailGeoJSON(s.path, bound, lines); err != nil {
		s.logger.Warn("failed to write rail snapshot", zap.String("path", s.path), zap.Error(err))
	}
	return lines, nil
}

var errStaleSnapshot = errors.New("snapshot covers a different area")

func (s *Snapshot) load(bound orb.Bound) ([]RailLine, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	if len(fc.BBox) != 4 || !fc.BBox.Bound().Equal(bound) {
		return nil, errStaleSnapshot
	}
	return RailLinesFromGeoJSON(fc), nil
}

// RailLinesFromGeoJSON reads LineString and MultiLineString features, taking
// the colour and name properties.
func RailLinesFromGeoJSON(fc *geojson.FeatureCollection) []RailLine {
	var lines []RailLine
	for _, f := range fc.Features {
		name := f.Properties.MustString("name", "")
		color := f.Properties.MustString("colour", "")
		switch g := f.Geometry.(type) {
		case orb.LineString:
			lines = append(lines, RailLine{Name: name, Color: color, Geometry: g})
		case orb.MultiLineString:
			for _, ls := range g {
				lines = append(lines, RailLine{Name: name, Color: color, Geometry: ls})
			}
		}
	}
	return lines
}

// WriteRailGeoJSON stores lines together with the bound they were fetched for.
func WriteRailGeoJSON(path string, bound orb.Bound, lines []RailLine) error {
	fc := geojson.NewFeatureCollection()
	fc.BBox = geojson.NewBBox(bound)
	for _, l := range lines {
		f := geojson.NewFeature(l.Geometry)
		f.Properties["name"] = l.Name
		f.Properties["colour"] = l.Color
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
