package heading

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gps-animator/internal/schedule"
	"gps-animator/internal/trip"
)

func TestBearingQuantized(t *testing.T) {
	four := []float64{0, 90, 180, 270}
	tests := []struct {
		to   orb.Point
		want float64
	}{
		{orb.Point{1, 0}, 90},
		{orb.Point{0, 1}, 0},
		{orb.Point{-1, 0}, 270},
		{orb.Point{0, -1}, 180},
		{orb.Point{3, -1}, 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Nearest(four, Bearing(orb.Point{0, 0}, tt.to)), "to %v", tt.to)
	}
	assert.InDelta(t, 45, Bearing(orb.Point{0, 0}, orb.Point{1, 1}), 1e-9)
	assert.InDelta(t, 135, Bearing(orb.Point{0, 0}, orb.Point{1, -1}), 1e-9)
}

func TestDirections(t *testing.T) {
	assert.Equal(t, []float64{0, 90, 180, 270}, Directions(4))
	d := Directions(64)
	require.Len(t, d, 64)
	assert.Equal(t, 5.625, d[1])
	assert.Equal(t, 354.375, d[63])
}

func TestNearestWraps(t *testing.T) {
	four := Directions(4)
	assert.Equal(t, 0.0, Nearest(four, 350))
	assert.Equal(t, 0.0, Nearest(four, 44))
	assert.Equal(t, 90.0, Nearest(four, 46))
	assert.Equal(t, 0.0, Nearest(four, 45))
	assert.Equal(t, 0.0, Nearest(Directions(64), 359))
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 90, Mean([]float64{80, 100}), 1e-9)
	assert.Equal(t, 0.0, Nearest(Directions(4), Mean([]float64{350, 10})))
	assert.InDelta(t, 270, Mean([]float64{270}), 1e-9)
}

func TestPlanStraightWalk(t *testing.T) {
	path := orb.LineString{{0, 0}, {0, 10}, {0, 20}, {0, 30}}
	tr := Plan(2, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 30}, DefaultOptions())
	assert.Equal(t, 2, tr.Edge)
	require.Len(t, tr.Steps, 3)
	total := 0.0
	for _, s := range tr.Steps {
		assert.Equal(t, 0.0, s.Heading)
		total += s.Duration
	}
	assert.InDelta(t, 10, total, 1e-9)
	assert.Nil(t, tr.Idle)
}

func TestPlanCoalescesShortSteps(t *testing.T) {
	path := orb.LineString{{0, 0}, {0, 0.1}, {0, 10}}
	tr := Plan(0, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 10}, DefaultOptions())
	require.Len(t, tr.Steps, 1)
	assert.Equal(t, orb.Point{0, 0}, tr.Steps[0].From)
	assert.Equal(t, orb.Point{0, 10}, tr.Steps[0].To)
	assert.InDelta(t, 10, tr.Steps[0].Duration, 1e-9)
}

func TestPlanKeepsFinalPoint(t *testing.T) {
	path := orb.LineString{{0, 0}, {0, 10}, {0, 10.01}}
	tr := Plan(0, trip.ModeCar, path, schedule.Slot{Start: 0, End: 10}, DefaultOptions())
	require.Len(t, tr.Steps, 2)
	assert.Equal(t, orb.Point{0, 10.01}, tr.Steps[1].To)
	assert.Less(t, tr.Steps[1].Duration, 0.15)

	path = orb.LineString{{0, 0}, {0, 10}, {0, 10}}
	tr = Plan(0, trip.ModeTrain, path, schedule.Slot{Start: 0, End: 10}, DefaultOptions())
	require.Len(t, tr.Steps, 2)
	assert.InDelta(t, 1.0/60, tr.Steps[1].Duration, 1e-12)
}

func TestPlanSmoothsSidestep(t *testing.T) {
	path := orb.LineString{{0, 0}, {0, 10}, {0, 20}, {0, 30}, {0, 40}, {0, 50}, {1, 50}}
	tr := Plan(0, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 100}, DefaultOptions())
	require.Len(t, tr.Steps, 6)
	assert.Equal(t, 90.0, Bearing(tr.Steps[5].From, tr.Steps[5].To))
	assert.Equal(t, 0.0, tr.Steps[5].Heading)

	tr = Plan(0, trip.ModeCar, path, schedule.Slot{Start: 0, End: 100}, DefaultOptions())
	assert.Equal(t, 90.0, tr.Steps[len(tr.Steps)-1].Heading)
}

func TestPlanTravelCapped(t *testing.T) {
	path := orb.LineString{{0, 0}, {100, 0}}
	tr := Plan(0, trip.ModeCar, path, schedule.Slot{Start: 0, End: 500}, Options{MaxTravel: 4})
	require.Len(t, tr.Steps, 1)
	assert.Equal(t, 4.0, tr.Steps[0].Duration)
	assert.Equal(t, 90.0, tr.Steps[0].Heading)
}

func TestPlanIdle(t *testing.T) {
	path := orb.LineString{{0, 0}, {0, 10}}
	opt := DefaultOptions()

	tr := Plan(0, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 10, Idle: 18, Paused: true}, opt)
	require.NotNil(t, tr.Idle)
	assert.Equal(t, orb.Point{0, 10}, tr.Idle.At)
	assert.Equal(t, 8.0, tr.Idle.Dwell)
	assert.Equal(t, 2.5, tr.Idle.Show)

	tr = Plan(0, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 10, Idle: 40, Paused: true}, opt)
	require.NotNil(t, tr.Idle)
	assert.Equal(t, 10.0, tr.Idle.Dwell)

	tr = Plan(0, trip.ModeWalking, path, schedule.Slot{Start: 0, End: 10, Idle: 13, Paused: true}, opt)
	assert.Nil(t, tr.Idle)
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, Plan(0, trip.ModeCar, nil, schedule.Slot{End: 1}, DefaultOptions()).Steps)
	assert.Empty(t, Plan(0, trip.ModeCar, orb.LineString{{1, 1}}, schedule.Slot{End: 1}, DefaultOptions()).Steps)
}
