package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"gps-animator/internal/geom"
)

// Overpass downloads subway and light rail ways from an Overpass API
// endpoint.
type Overpass struct {
	logger *zap.Logger
	url    string
	client *http.Client
}

func NewOverpass(logger *zap.Logger, endpoint string, timeout time.Duration) *Overpass {
	return &Overpass{logger: logger, url: endpoint, client: &http.Client{Timeout: timeout}}
}

type overpassResponse struct {
	Elements []struct {
		Type     string            `json:"type"`
		ID       int64             `json:"id"`
		Tags     map[string]string `json:"tags"`
		Geometry []struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"geometry"`
	} `json:"elements"`
}

func railQuery(b orb.Bound) string {
	return fmt.Sprintf(`[out:json][timeout:90];way["railway"~"^(subway|light_rail)$"](%s,%s,%s,%s);out geom;`,
		ff(b.Min.Lat()), ff(b.Min.Lon()), ff(b.Max.Lat()), ff(b.Max.Lon()))
}

// RailLines returns the merged rail lines inside bound. Ways traced from Bing
// imagery are dropped.
func (o *Overpass) RailLines(ctx context.Context, bound orb.Bound) ([]RailLine, error) {
	form := "data=" + url.QueryEscape(railQuery(bound))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var obj overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("overpass decode: %w", err)
	}

	var lines []RailLine
	dropped := 0
	for _, el := range obj.Elements {
		if el.Type != "way" || len(el.Geometry) < 2 {
			continue
		}
		if el.Tags["source"] == "Bing" {
			dropped++
			continue
		}
		ls := make(orb.LineString, len(el.Geometry))
		for i, g := range el.Geometry {
			ls[i] = geom.Mercator(orb.Point{g.Lon, g.Lat})
		}
		name := el.Tags["name:en"]
		if name == "" {
			name = el.Tags["name"]
		}
		lines = append(lines, RailLine{Name: name, Color: el.Tags["colour"], Geometry: ls})
	}
	merged := MergeLines(lines)
	o.logger.Info("rail network loaded",
		zap.Int("ways", len(lines)),
		zap.Int("dropped", dropped),
		zap.Int("lines", len(merged)),
	)
	return merged, nil
}
