package tiles

import (
	"fmt"
	"math"
)

// DefaultZoom is the zoom level used for roof estimation. At zoom 18 a
// 256-pixel tile spans roughly one residential lot.
const DefaultZoom = 18

// MaxMercatorLatitude is the latitude bound of the Web Mercator projection.
// Beyond it the tile Y formula diverges.
const MaxMercatorLatitude = 85.05112878

// TileCoordinate identifies a single tile in the slippy-map grid.
type TileCoordinate struct {
	Zoom int `json:"z"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// String returns the tile as "z/x/y".
func (t TileCoordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// ToTile converts a WGS84 coordinate into tile indices at the given zoom.
//
// The conversion uses the standard slippy-map formulas:
//
//	n = 2^zoom
//	x = floor((lng + 180) / 360 * n)
//	y = floor((1 - ln(tan(φ) + sec(φ)) / π) / 2 * n)
//
// ToTile has no error path. Latitudes outside ±MaxMercatorLatitude must be
// rejected by the caller.
func ToTile(lat, lng float64, zoom int) TileCoordinate {
	n := math.Exp2(float64(zoom))
	phi := lat * math.Pi / 180

	x := math.Floor((lng + 180) / 360 * n)
	y := math.Floor((1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * n)

	return TileCoordinate{Zoom: zoom, X: int(x), Y: int(y)}
}

// ValidMercatorLatitude reports whether lat can be projected by ToTile.
func ValidMercatorLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat > -MaxMercatorLatitude && lat < MaxMercatorLatitude
}
