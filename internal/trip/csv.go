package trip

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

type csvRow struct {
	Name          string  `csv:"Name"`
	Latitude      float64 `csv:"Latitude"`
	Longitude     float64 `csv:"Longitude"`
	ArrivalTime   string  `csv:"Arrival_Time"`
	DepartureTime string  `csv:"Departure_Time"`
	Icon          string  `csv:"Icon"`
	IconScale     string  `csv:"Icon_Scale"`
	DepartureType string  `csv:"Departure_Type"`
}

// LoadCSV imports a points table. Times are seconds since midnight or HH:MM,
// empty cells are open.
func LoadCSV(path string) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*csvRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	t := NewTimeline()
	for i, row := range rows {
		s, err := row.stop()
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
		}
		t.stops = append(t.stops, s)
	}
	return t, nil
}

func SaveCSV(path string, t *Timeline) error {
	rows := make([]*csvRow, 0, len(t.stops))
	for _, s := range t.stops {
		row := &csvRow{
			Name:          s.Name,
			Latitude:      s.Lat,
			Longitude:     s.Lon,
			ArrivalTime:   csvClock(s.Arrival),
			DepartureTime: csvClock(s.Departure),
			Icon:          s.Icon,
			DepartureType: s.Mode.String(),
		}
		if s.IconScale > 0 {
			row.IconScale = strconv.FormatFloat(s.IconScale, 'f', -1, 64)
		}
		rows = append(rows, row)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *csvRow) stop() (Stop, error) {
	arr, err := csvParseClock(r.ArrivalTime, OpenStart)
	if err != nil {
		return Stop{}, fmt.Errorf("arrival: %w", err)
	}
	dep, err := csvParseClock(r.DepartureTime, OpenEnd)
	if err != nil {
		return Stop{}, fmt.Errorf("departure: %w", err)
	}
	rec := record{Name: r.Name, Latitude: r.Latitude, Longitude: r.Longitude}
	if err := validate.Struct(rec); err != nil {
		return Stop{}, err
	}
	w := Waypoint{
		Name:      r.Name,
		Lat:       r.Latitude,
		Lon:       r.Longitude,
		Arrival:   arr,
		Departure: dep,
		Icon:      strings.TrimSpace(r.Icon),
	}
	if v := strings.TrimSpace(r.IconScale); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Stop{}, fmt.Errorf("invalid Icon_Scale: %q", v)
		}
		w.IconScale = f
	}
	return Stop{Waypoint: w, Mode: ParseMode(r.DepartureType)}, nil
}

func csvParseClock(s string, open Clock) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return open, nil
	}
	if strings.Contains(s, ":") {
		return ParseClock(s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q", s)
	}
	return clockFrom(n, open)
}

func csvClock(c Clock) string {
	if sec, ok := c.Seconds(); ok {
		return strconv.Itoa(sec)
	}
	return ""
}
