package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 0}}

	tests := []struct {
		name    string
		start   orb.Point
		end     orb.Point
		want    orb.LineString
		wantErr bool
	}{
		{name: "forward pair", start: orb.Point{1, 0}, end: orb.Point{2, 0}, want: orb.LineString{{1, 0}, {2, 0}}},
		{name: "whole line", start: orb.Point{0, 0}, end: orb.Point{3, 0}, want: line},
		{name: "same vertex", start: orb.Point{2, 0}, end: orb.Point{2, 0}, want: orb.LineString{{2, 0}}},
		{name: "end before start", start: orb.Point{2, 0}, end: orb.Point{1, 0}, wantErr: true},
		{name: "start missing", start: orb.Point{9, 9}, end: orb.Point{1, 0}, wantErr: true},
		{name: "end missing", start: orb.Point{1, 0}, end: orb.Point{9, 9}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(line, tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSegmentNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUsesFirstEndAfterStart(t *testing.T) {
	line := orb.LineString{{5, 5}, {0, 0}, {1, 1}, {5, 5}, {2, 2}, {5, 5}}
	got, err := Extract(line, orb.Point{0, 0}, orb.Point{5, 5})
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 1}, {5, 5}}, got)
}

func TestMercator(t *testing.T) {
	p := Mercator(orb.Point{0, 0})
	assert.InDelta(t, 0, p.X(), 1e-9)
	assert.InDelta(t, 0, p.Y(), 1e-9)

	p = Mercator(orb.Point{180, 0})
	assert.InDelta(t, 20037508.34, p.X(), 0.01)

	clamped := Mercator(orb.Point{0, 89.9})
	limit := Mercator(orb.Point{0, MaxLatitude})
	assert.InDelta(t, limit.Y(), clamped.Y(), 1e-6)
	assert.InDelta(t, 20037508.34, limit.Y(), 1)
}

func TestExpand(t *testing.T) {
	b := orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{10.2, 20.1}}
	got := Expand(b, 0.5)
	assert.Equal(t, orb.Point{9.9, 19.95}, got.Min)
	assert.Equal(t, orb.Point{10.3, 20.15}, got.Max)
}

func TestFrame(t *testing.T) {
	_, err := NewFrame(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 2}})
	assert.ErrorIs(t, err, ErrEmptyFrame)

	f, err := NewFrame(orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, SceneWidth, f.Width)
	assert.InDelta(t, SceneWidth, f.Height, 0.01)

	c := f.ToScene(Mercator(orb.Point{0, 0}))
	assert.InDelta(t, 0, c.X(), 1e-9)
	assert.InDelta(t, 0, c.Y(), 1e-9)

	corner := f.ToScene(f.Max)
	assert.InDelta(t, f.Width/2, corner.X(), 1e-9)
	assert.InDelta(t, f.Height/2, corner.Y(), 1e-9)
}

func TestLengthAndReverse(t *testing.T) {
	ls := orb.LineString{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11, Length(ls), 1e-9)
	assert.Equal(t, orb.LineString{{3, 10}, {3, 4}, {0, 0}}, Reverse(ls))
	assert.Equal(t, orb.Point{0, 0}, ls[0])
}

func TestGeographicInvertsMercator(t *testing.T) {
	p := orb.Point{139.7671, 35.6812}
	back := Geographic(Mercator(p))
	assert.InDelta(t, p.Lon(), back.Lon(), 1e-9)
	assert.InDelta(t, p.Lat(), back.Lat(), 1e-9)

	ls := GeographicLine(MercatorLine(orb.LineString{{0, 0}, {13.4, 52.5}}))
	require.Len(t, ls, 2)
	assert.InDelta(t, 52.5, ls[1].Lat(), 1e-9)
}
