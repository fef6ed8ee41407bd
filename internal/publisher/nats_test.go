package publisher

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gps-animator/internal/anim"
	"gps-animator/internal/route"
	"gps-animator/internal/trip"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		trip string
		want string
	}{
		{"tokyo", "animator.plan.tokyo"},
		{" tokyo day 2 ", "animator.plan.tokyo_day_2"},
		{"points.v2/*", "animator.plan.points_v2__"},
		{"a>b", "animator.plan.a_b"},
		{"", "animator.plan._"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Subject("animator", "plan", tt.trip))
	}
}

func TestNewEdgeMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*3600))
	e := trip.Edge{
		Index: 2,
		From:  trip.Waypoint{Name: "office"},
		To:    trip.Waypoint{Name: "hotel"},
		Mode:  trip.ModeCar,
	}

	ok := NewEdgeMessage("tokyo", anim.EdgeResult{Edge: e, Segment: route.Segment{Points: orb.LineString{{0, 0}, {1, 1}, {2, 2}}}}, now)
	assert.Equal(t, "resolved", ok.Status)
	assert.Equal(t, 3, ok.Points)
	assert.Equal(t, "car", ok.Mode)
	assert.Empty(t, ok.Reason)
	assert.Equal(t, time.UTC, ok.Timestamp.Location())

	failed := NewEdgeMessage("tokyo", anim.EdgeResult{Edge: e, Err: fmt.Errorf("osrm: %w", route.ErrNoRouteFound)}, now)
	assert.Equal(t, "skipped", failed.Status)
	assert.Equal(t, anim.ReasonNoRoute, failed.Reason)

	b, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trip":"tokyo","edge":2,"from":"office","to":"hotel","mode":"car",
		"status":"skipped","reason":"no_route","points":0,"timestamp":"2024-05-01T00:30:00Z"}`, string(b))
}
