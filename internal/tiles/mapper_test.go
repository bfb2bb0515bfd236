package tiles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTile(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		zoom     int
		want     TileCoordinate
	}{
		{"origin zoom 18", 0, 0, 18, TileCoordinate{Zoom: 18, X: 131072, Y: 131072}},
		{"origin zoom 0", 0, 0, 0, TileCoordinate{Zoom: 0, X: 0, Y: 0}},
		{"origin zoom 1", 0, 0, 1, TileCoordinate{Zoom: 1, X: 1, Y: 1}},
		{"north-west quadrant", 45, -90, 1, TileCoordinate{Zoom: 1, X: 0, Y: 0}},
		{"south-east quadrant", -45, 90, 1, TileCoordinate{Zoom: 1, X: 1, Y: 1}},
		{"berlin zoom 10", 52.52, 13.405, 10, TileCoordinate{Zoom: 10, X: 550, Y: 335}},
		{"date line west edge", 0, -180, 18, TileCoordinate{Zoom: 18, X: 0, Y: 131072}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTile(tt.lat, tt.lng, tt.zoom))
		})
	}
}

func TestToTile_Deterministic(t *testing.T) {
	first := ToTile(40.7128, -74.0060, DefaultZoom)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ToTile(40.7128, -74.0060, DefaultZoom))
	}
}

func TestToTile_StaysInGrid(t *testing.T) {
	n := 1 << DefaultZoom
	for _, lat := range []float64{-85, -60, -1, 0, 1, 60, 85} {
		for _, lng := range []float64{-179.999, -90, 0, 90, 179.999} {
			tc := ToTile(lat, lng, DefaultZoom)
			assert.GreaterOrEqual(t, tc.X, 0)
			assert.Less(t, tc.X, n)
			assert.GreaterOrEqual(t, tc.Y, 0)
			assert.Less(t, tc.Y, n)
		}
	}
}

func TestValidMercatorLatitude(t *testing.T) {
	assert.True(t, ValidMercatorLatitude(0))
	assert.True(t, ValidMercatorLatitude(85.05))
	assert.True(t, ValidMercatorLatitude(-85.05))
	assert.False(t, ValidMercatorLatitude(85.06))
	assert.False(t, ValidMercatorLatitude(-90))
	assert.False(t, ValidMercatorLatitude(math.NaN()))
}

func TestTileCoordinate_String(t *testing.T) {
	assert.Equal(t, "18/131072/131072", TileCoordinate{Zoom: 18, X: 131072, Y: 131072}.String())
}
