package trip

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrOpenTime is returned when an edge needs a bounded departure or arrival
// but the waypoint carries an open one.
var ErrOpenTime = errors.New("open time window")

// Mode is the transport used to travel from a waypoint to the next one.
type Mode int

const (
	ModeEnd Mode = iota
	ModeWalking
	ModeTrain
	ModeCar
)

// ParseMode accepts a mode name or its numeric value. Unknown input maps to ModeEnd.
func ParseMode(s string) Mode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "walking", "walk", "foot":
		return ModeWalking
	case "train", "rail", "subway":
		return ModeTrain
	case "car", "drive", "driving":
		return ModeCar
	}
	if n, err := strconv.Atoi(s); err == nil {
		return ModeFromInt(n)
	}
	return ModeEnd
}

// ModeFromInt maps 1..3 to a travel mode and anything else to ModeEnd.
func ModeFromInt(n int) Mode {
	if n > 0 && n <= int(ModeCar) {
		return Mode(n)
	}
	return ModeEnd
}

func (m Mode) String() string {
	switch m {
	case ModeWalking:
		return "walking"
	case ModeTrain:
		return "train"
	case ModeCar:
		return "car"
	default:
		return "end"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	*m = ParseMode(string(b))
	return nil
}

// Color is the display color used for a segment of this mode. Train segments
// take their color from the matched rail line, so ModeTrain returns "".
func (m Mode) Color() string {
	switch m {
	case ModeWalking:
		return "#583927"
	case ModeCar:
		return "#808080"
	default:
		return ""
	}
}

type clockKind uint8

const (
	bounded clockKind = iota
	openStart
	openEnd
)

// Clock is a time of day in seconds since midnight, or one of the open
// variants used for a missing arrival (OpenStart) or departure (OpenEnd).
type Clock struct {
	sec  int
	kind clockKind
}

var (
	OpenStart = Clock{kind: openStart}
	OpenEnd   = Clock{kind: openEnd}
)

// legacyOpenEnd is the departure value older point files use for "never leaves".
const legacyOpenEnd = 1 << 32

// At returns a bounded clock. Values may exceed 24h for trips past midnight.
func At(sec int) Clock { return Clock{sec: sec} }

// Seconds reports the bounded value and whether the clock is bounded.
func (c Clock) Seconds() (int, bool) { return c.sec, c.kind == bounded }

func (c Clock) IsOpen() bool { return c.kind != bounded }

// order places OpenStart before every bounded value and OpenEnd after.
func (c Clock) order() float64 {
	switch c.kind {
	case openStart:
		return math.Inf(-1)
	case openEnd:
		return math.Inf(1)
	}
	return float64(c.sec)
}

func (c Clock) String() string {
	switch c.kind {
	case openStart:
		return "open-start"
	case openEnd:
		return "open-end"
	}
	h := c.sec / 3600
	m := (c.sec % 3600) / 60
	s := c.sec % 60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseClock parses HH:MM or HH:MM:SS, allowing hours >= 24.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid time %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Clock{}, fmt.Errorf("invalid time %q", s)
		}
		vals[i] = n
	}
	if vals[1] > 59 || vals[2] > 59 {
		return Clock{}, fmt.Errorf("invalid time %q", s)
	}
	return At(vals[0]*3600 + vals[1]*60 + vals[2]), nil
}

// Waypoint is a named stop with a time window and an optional icon.
type Waypoint struct {
	Name      string
	Lat       float64
	Lon       float64
	Arrival   Clock
	Departure Clock
	Icon      string
	IconScale float64
}

// Coord returns the waypoint as a geographic point (x = lon, y = lat).
func (w Waypoint) Coord() orb.Point { return orb.Point{w.Lon, w.Lat} }

// Scale returns the icon scale, defaulting to 1 when unset.
func (w Waypoint) Scale() float64 {
	if w.IconScale <= 0 {
		return 1
	}
	return w.IconScale
}

func (w Waypoint) covers(sec int) bool {
	t := float64(sec)
	return w.Arrival.order() <= t && t <= w.Departure.order()
}

// Stop pairs a waypoint with the mode used to leave it.
type Stop struct {
	Waypoint
	Mode Mode
}

// Edge is the leg between two consecutive waypoints.
type Edge struct {
	Index int
	From  Waypoint
	To    Waypoint
	Mode  Mode
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s (%s)", e.From.Name, e.To.Name, e.Mode)
}

// Window returns the departure from From and the arrival at To.
func (e Edge) Window() (dep, arr int, err error) {
	dep, ok := e.From.Departure.Seconds()
	if !ok {
		return 0, 0, fmt.Errorf("departure from %q: %w", e.From.Name, ErrOpenTime)
	}
	arr, ok = e.To.Arrival.Seconds()
	if !ok {
		return 0, 0, fmt.Errorf("arrival at %q: %w", e.To.Name, ErrOpenTime)
	}
	return dep, arr, nil
}
