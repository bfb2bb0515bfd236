package estimate

import "math"

// Tile geometry and unit constants.
const (
	// MetersPerTile is the ground width of one zoom-18 tile near the
	// reference latitude. It is not adjusted for the actual latitude.
	MetersPerTile = 38.2

	// TileSidePixels is the tile edge length in pixels.
	TileSidePixels = 256

	// SqFtPerSqM converts square meters to square feet.
	SqFtPerSqM = 10.764

	// Correction scales detected area down to the likely roof footprint.
	Correction = 0.6
)

// Plausibility bounds and their substitutes, in square feet.
const (
	MinArea      = 500.0
	LowFallback  = 4500.0
	MaxArea      = 15000.0
	HighFallback = 8000.0
)

// Converter turns a masked pixel count into a rounded square-footage figure.
//
// Out-of-range areas are replaced by fixed substitutes, not clamped to the
// bound: below MinArea becomes LowFallback and above MaxArea becomes
// HighFallback. The result is then rounded to the nearest 100 with ties to
// even.
type Converter struct {
	MetersPerTile  float64
	TileSidePixels float64
	SqFtPerSqM     float64
	Correction     float64
}

// NewConverter returns a converter with the standard tile geometry.
func NewConverter() Converter {
	return Converter{
		MetersPerTile:  MetersPerTile,
		TileSidePixels: TileSidePixels,
		SqFtPerSqM:     SqFtPerSqM,
		Correction:     Correction,
	}
}

// RawSquareFeet is the corrected area before substitution and rounding.
func (c Converter) RawSquareFeet(pixels int) float64 {
	metersPerPixel := c.MetersPerTile / c.TileSidePixels
	sqMetersPerPixel := metersPerPixel * metersPerPixel
	area := float64(pixels) * sqMetersPerPixel
	area *= c.SqFtPerSqM
	area *= c.Correction
	return area
}

// Convert returns the final estimate for a pixel count. The result is always
// a multiple of 100.
func (c Converter) Convert(pixels int) int {
	return Bound(c.RawSquareFeet(pixels))
}

// Bound applies the substitution policy and rounding to a raw area.
func Bound(area float64) int {
	switch {
	case area < MinArea:
		area = LowFallback
	case area > MaxArea:
		area = HighFallback
	}
	return int(math.RoundToEven(area/100) * 100)
}
