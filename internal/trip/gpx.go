package trip

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
)

// LoadGPX builds a timeline from the waypoints of a GPX file. A waypoint's
// <time> becomes both arrival and departure, its <type> names the mode used
// to leave it and its <sym> is taken as the icon. The last waypoint always
// ends the timeline.
func LoadGPX(path string) (*Timeline, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	t := NewTimeline()
	for i, p := range g.Waypoints {
		w := Waypoint{
			Name:      p.Name,
			Lat:       p.Latitude,
			Lon:       p.Longitude,
			Arrival:   OpenStart,
			Departure: OpenEnd,
			Icon:      p.Symbol,
		}
		if w.Name == "" {
			w.Name = fmt.Sprintf("wpt-%d", i+1)
		}
		if !p.Timestamp.IsZero() {
			ts := p.Timestamp
			c := At(ts.Hour()*3600 + ts.Minute()*60 + ts.Second())
			w.Arrival, w.Departure = c, c
		}
		mode := ParseMode(p.Type)
		if mode == ModeEnd && p.Type == "" {
			mode = ModeWalking
		}
		if i == len(g.Waypoints)-1 {
			mode = ModeEnd
		}
		t.Add(w, mode)
	}
	return t, nil
}
