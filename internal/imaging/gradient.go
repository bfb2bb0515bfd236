package imaging

import (
	"math"
	"sort"
)

// Gradient computes horizontal and vertical finite differences over a
// row-major single-channel grid.
//
// Interior samples use central differences, (f[i+1] - f[i-1]) / 2. Border
// samples use one-sided differences, f[1] - f[0] and f[n-1] - f[n-2]. An axis
// of length 1 has zero gradient along it.
//
// Returns gx (change along X) and gy (change along Y), each width*height long.
func Gradient(samples []uint8, width, height int) (gx, gy []float64) {
	n := width * height
	gx = make([]float64, n)
	gy = make([]float64, n)

	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			gx[row+x] = diff(samples, row, 1, x, width)
			gy[row+x] = diff(samples, x, width, y, height)
		}
	}
	return gx, gy
}

// diff returns the finite difference at index i along an axis of length n
// whose samples start at base and are stride apart.
func diff(samples []uint8, base, stride, i, n int) float64 {
	at := func(k int) float64 { return float64(samples[base+k*stride]) }
	switch {
	case n < 2:
		return 0
	case i == 0:
		return at(1) - at(0)
	case i == n-1:
		return at(n-1) - at(n-2)
	default:
		return (at(i+1) - at(i-1)) / 2
	}
}

// Magnitude returns sqrt(gx² + gy²) for every sample.
func Magnitude(gx, gy []float64) []float64 {
	out := make([]float64, len(gx))
	for i := range gx {
		out[i] = math.Sqrt(gx[i]*gx[i] + gy[i]*gy[i])
	}
	return out
}

// Percentile returns the p-th percentile (0-100) of values.
//
// The rank is p/100 * (len-1) over the sorted values, linearly interpolated
// between the two closest ranks. An empty slice yields 0. The input is not
// modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// ChannelStdDev returns the population standard deviation of the first three
// channels of every pixel in a color grid. Grids with fewer than three
// channels yield nil.
func ChannelStdDev(g *PixelGrid) []float64 {
	if !g.IsColor() {
		return nil
	}
	out := make([]float64, g.Len())
	for i := range out {
		p := g.Pix[i*g.Channels : i*g.Channels+3]
		r, gr, b := float64(p[0]), float64(p[1]), float64(p[2])
		mean := (r + gr + b) / 3
		v := ((r-mean)*(r-mean) + (gr-mean)*(gr-mean) + (b-mean)*(b-mean)) / 3
		out[i] = math.Sqrt(v)
	}
	return out
}
