package trip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// record is the on-disk shape of one stop, shared by the JSON and YAML files.
type record struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	Latitude  float64  `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	Arrival   any      `json:"arrival" yaml:"arrival"`
	Departure any      `json:"departure" yaml:"departure"`
	Icon      *string  `json:"icon" yaml:"icon"`
	IconScale *float64 `json:"icon_scale" yaml:"icon_scale" validate:"omitempty,gt=0"`
	DepType   any      `json:"dep_type" yaml:"dep_type"`
}

// Load reads a timeline, picking the format from the file extension.
func Load(path string) (*Timeline, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".gpx":
		return LoadGPX(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []record
	if isYAML(path) {
		err = yaml.Unmarshal(b, &recs)
	} else {
		err = json.Unmarshal(b, &recs)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	t := NewTimeline()
	for i, r := range recs {
		s, err := r.stop()
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		t.stops = append(t.stops, s)
	}
	return t, nil
}

// Save writes the timeline in insertion order. CSV and YAML are chosen by
// extension, anything else is written as indented JSON.
func Save(path string, t *Timeline) error {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return SaveCSV(path, t)
	}
	recs := make([]record, 0, len(t.stops))
	for _, s := range t.stops {
		recs = append(recs, newRecord(s))
	}
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(recs)
	} else {
		b, err = json.MarshalIndent(recs, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (r record) stop() (Stop, error) {
	if err := validate.Struct(r); err != nil {
		return Stop{}, err
	}
	arr, err := clockFrom(r.Arrival, OpenStart)
	if err != nil {
		return Stop{}, fmt.Errorf("arrival: %w", err)
	}
	dep, err := clockFrom(r.Departure, OpenEnd)
	if err != nil {
		return Stop{}, fmt.Errorf("departure: %w", err)
	}
	w := Waypoint{
		Name:      r.Name,
		Lat:       r.Latitude,
		Lon:       r.Longitude,
		Arrival:   arr,
		Departure: dep,
	}
	if r.Icon != nil {
		w.Icon = *r.Icon
	}
	if r.IconScale != nil {
		w.IconScale = *r.IconScale
	}
	return Stop{Waypoint: w, Mode: modeFrom(r.DepType)}, nil
}

func newRecord(s Stop) record {
	r := record{
		Name:      s.Name,
		Latitude:  s.Lat,
		Longitude: s.Lon,
		Arrival:   clockValue(s.Arrival),
		Departure: clockValue(s.Departure),
		DepType:   int(s.Mode),
	}
	if s.Icon != "" {
		icon := s.Icon
		r.Icon = &icon
	}
	if s.IconScale > 0 {
		scale := s.IconScale
		r.IconScale = &scale
	}
	return r
}

func clockValue(c Clock) any {
	if sec, ok := c.Seconds(); ok {
		return sec
	}
	return nil
}

// clockFrom decodes a stored time: null, seconds, or an HH:MM string.
func clockFrom(v any, open Clock) (Clock, error) {
	var sec float64
	switch x := v.(type) {
	case nil:
		return open, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return open, nil
		}
		return ParseClock(x)
	case float64:
		sec = x
	case int:
		sec = float64(x)
	case int64:
		sec = float64(x)
	case uint64:
		sec = float64(x)
	default:
		return Clock{}, fmt.Errorf("unsupported time value %v", v)
	}
	if sec >= legacyOpenEnd {
		return OpenEnd, nil
	}
	if sec < 0 {
		return Clock{}, fmt.Errorf("negative time %v", sec)
	}
	return At(int(sec)), nil
}

func modeFrom(v any) Mode {
	switch x := v.(type) {
	case string:
		return ParseMode(x)
	case float64:
		return ModeFromInt(int(x))
	case int:
		return ModeFromInt(x)
	}
	return ModeEnd
}
