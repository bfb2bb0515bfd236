package detection

import (
	"errors"

	"github.com/ironsheep/roof-estimator/internal/imaging"
)

// ErrUndetectable is returned when the primary mask is too sparse and the
// grid has no color channels to fall back on.
var ErrUndetectable = errors.New("building footprint undetectable")

// Source names the rule that produced a mask.
type Source string

const (
	// SourceEdges is the primary edge-and-darkness rule.
	SourceEdges Source = "edges"

	// SourceVariance is the chroma-variance fallback rule.
	SourceVariance Source = "variance"
)

// Default thresholds on an 8-bit scale.
const (
	DefaultEdgePercentile    = 75.0
	DefaultDarknessThreshold = 150
	DefaultMinPrimaryPixels  = 100
	DefaultVarianceThreshold = 30.0
)

// Bounds is the bounding box of the masked pixels.
//
// (X1, Y1) is inclusive, (X2, Y2) is exclusive. A mask with no pixels has a
// zero Bounds.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Mask marks the pixels classified as building.
type Mask struct {
	// Width and Height match the source grid.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Bits is row-major; true means building.
	Bits []bool `json:"-"`

	// Count is the number of true entries in Bits.
	Count int `json:"count"`

	// Source is the rule that produced the mask.
	Source Source `json:"source"`

	// EdgeThreshold is the gradient magnitude percentile used for the edge mask.
	EdgeThreshold float64 `json:"edge_threshold"`

	// PrimaryCount is the primary rule's count, reported even when the
	// fallback replaced it.
	PrimaryCount int `json:"primary_count"`
}

// Bounds returns the bounding box of the masked pixels.
func (m *Mask) Bounds() Bounds {
	if m.Count == 0 {
		return Bounds{}
	}
	b := Bounds{X1: m.Width, Y1: m.Height}
	for i, on := range m.Bits {
		if !on {
			continue
		}
		x, y := i%m.Width, i/m.Width
		b.X1 = min(b.X1, x)
		b.Y1 = min(b.Y1, y)
		b.X2 = max(b.X2, x+1)
		b.Y2 = max(b.Y2, y+1)
	}
	return b
}

// MaskDetector produces a building mask for a pixel grid.
type MaskDetector interface {
	Detect(grid *imaging.PixelGrid) (*Mask, error)
}

// BuildingDetector is the edge-and-darkness heuristic with a variance
// fallback. The zero value is not usable; use NewBuildingDetector.
//
// BuildingDetector holds only configuration and is safe for concurrent use.
type BuildingDetector struct {
	EdgePercentile    float64
	DarknessThreshold uint8
	MinPrimaryPixels  int
	VarianceThreshold float64
}

// NewBuildingDetector returns a detector with the default thresholds.
func NewBuildingDetector() *BuildingDetector {
	return &BuildingDetector{
		EdgePercentile:    DefaultEdgePercentile,
		DarknessThreshold: DefaultDarknessThreshold,
		MinPrimaryPixels:  DefaultMinPrimaryPixels,
		VarianceThreshold: DefaultVarianceThreshold,
	}
}

// Detect classifies every pixel of grid.
//
// # Algorithm
//
//  1. luma = grid luma (1-channel grids are used directly)
//  2. gx, gy = finite differences of luma; magnitude = sqrt(gx² + gy²)
//  3. threshold = EdgePercentile of magnitude; edge = magnitude > threshold
//  4. dark = luma < DarknessThreshold
//  5. primary = edge AND dark
//  6. if count(primary) < MinPrimaryPixels:
//     - color grid: mask = stddev(R, G, B) > VarianceThreshold, whatever
//     its count
//     - grayscale grid: ErrUndetectable
//
// # Errors
//
//   - Returns ErrUndetectable for sparse grayscale grids
//   - Returns error for an empty grid
func (d *BuildingDetector) Detect(grid *imaging.PixelGrid) (*Mask, error) {
	if grid == nil || grid.Len() == 0 {
		return nil, errors.New("empty pixel grid")
	}

	luma := grid.Luma()
	gx, gy := imaging.Gradient(luma, grid.Width, grid.Height)
	magnitude := imaging.Magnitude(gx, gy)
	threshold := imaging.Percentile(magnitude, d.EdgePercentile)

	mask := &Mask{
		Width:         grid.Width,
		Height:        grid.Height,
		Bits:          make([]bool, grid.Len()),
		Source:        SourceEdges,
		EdgeThreshold: threshold,
	}
	for i := range mask.Bits {
		if magnitude[i] > threshold && luma[i] < d.DarknessThreshold {
			mask.Bits[i] = true
			mask.Count++
		}
	}
	mask.PrimaryCount = mask.Count

	if mask.Count >= d.MinPrimaryPixels {
		return mask, nil
	}
	if !grid.IsColor() {
		return nil, ErrUndetectable
	}

	stddev := imaging.ChannelStdDev(grid)
	mask.Source = SourceVariance
	mask.Count = 0
	for i := range mask.Bits {
		mask.Bits[i] = stddev[i] > d.VarianceThreshold
		if mask.Bits[i] {
			mask.Count++
		}
	}
	return mask, nil
}
