package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"gps-animator/internal/geom"
	"gps-animator/internal/trip"
)

// OSRM queries an OSRM routing service. Destinations farther than the search
// radius from the origin are treated as unreachable, like a street graph
// built around the origin would.
type OSRM struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
	radius  float64
}

func NewOSRM(logger *zap.Logger, baseURL string, timeout time.Duration, radius float64) *OSRM {
	return &OSRM{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		radius:  radius,
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRM) ShortestPath(ctx context.Context, from, to orb.Point, mode trip.Mode) (orb.LineString, error) {
	var profile string
	switch mode {
	case trip.ModeWalking:
		profile = "foot"
	case trip.ModeCar:
		profile = "driving"
	default:
		return nil, fmt.Errorf("osrm: unsupported mode %s", mode)
	}
	if d := geo.Distance(from, to); o.radius > 0 && d > o.radius {
		return nil, fmt.Errorf("%w: destination %.0f m away, search radius %.0f m", ErrNoRouteFound, d, o.radius)
	}

	reqURL := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=geojson",
		o.baseURL, profile, ff(from.Lon()), ff(from.Lat()), ff(to.Lon()), ff(to.Lat()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("osrm read: %w", err)
	}
	var obj osrmResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("osrm decode: %w", err)
	}
	if obj.Code == "NoRoute" || (resp.StatusCode == http.StatusOK && len(obj.Routes) == 0) {
		return nil, fmt.Errorf("%w: %s", ErrNoRouteFound, obj.Message)
	}
	if resp.StatusCode != http.StatusOK || obj.Code != "Ok" {
		return nil, fmt.Errorf("osrm status %d code %q: %s", resp.StatusCode, obj.Code, obj.Message)
	}

	g, err := geojson.UnmarshalGeometry(obj.Routes[0].Geometry)
	if err != nil {
		return nil, fmt.Errorf("osrm geometry: %w", err)
	}
	ls, ok := g.Geometry().(orb.LineString)
	if !ok || len(ls) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", ErrNoRouteFound)
	}
	o.logger.Debug("osrm route",
		zap.String("profile", profile),
		zap.Int("points", len(ls)),
		zap.Float64("distance_m", obj.Routes[0].Distance),
		zap.Duration("elapsed", time.Since(start)),
	)
	return geom.MercatorLine(ls), nil
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
