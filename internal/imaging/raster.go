package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// PixelGrid is a decoded raster with interleaved 8-bit samples.
//
// Pix holds Width*Height*Channels bytes. The sample for channel c of the
// pixel at (x, y) lives at Pix[(y*Width+x)*Channels+c].
type PixelGrid struct {
	// Width is the grid width in pixels.
	Width int

	// Height is the grid height in pixels.
	Height int

	// Channels is 1 (luma), 3 (RGB) or 4 (RGBA).
	Channels int

	// Pix holds the interleaved samples.
	Pix []uint8

	// Format is the codec name reported by the decoder ("png", "jpeg", ...).
	// Empty for grids built in memory.
	Format string
}

// NewPixelGrid allocates a zeroed grid.
func NewPixelGrid(width, height, channels int) *PixelGrid {
	return &PixelGrid{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// At returns the sample for channel c at (x, y).
func (g *PixelGrid) At(x, y, c int) uint8 {
	return g.Pix[(y*g.Width+x)*g.Channels+c]
}

// Set stores the sample for channel c at (x, y).
func (g *PixelGrid) Set(x, y, c int, v uint8) {
	g.Pix[(y*g.Width+x)*g.Channels+c] = v
}

// IsColor reports whether the grid has at least three color channels.
func (g *PixelGrid) IsColor() bool {
	return g.Channels >= 3
}

// Len returns the number of pixels in the grid.
func (g *PixelGrid) Len() int {
	return g.Width * g.Height
}

// Luma returns the single-channel brightness of every pixel, row-major.
//
// For 1-channel grids the samples are returned as a copy. For color grids
// the first three channels are combined with the BT.601 weights using the
// same fixed-point rounding as common image libraries:
//
//	L = (R*19595 + G*38470 + B*7471 + 32768) >> 16
//
// Alpha is ignored.
func (g *PixelGrid) Luma() []uint8 {
	n := g.Len()
	out := make([]uint8, n)
	if g.Channels == 1 {
		copy(out, g.Pix[:n])
		return out
	}
	for i := 0; i < n; i++ {
		p := g.Pix[i*g.Channels : i*g.Channels+3]
		out[i] = uint8((uint32(p[0])*19595 + uint32(p[1])*38470 + uint32(p[2])*7471 + 1<<15) >> 16)
	}
	return out
}

// Image converts the grid back into an image.Image.
//
// 1-channel grids become *image.Gray; color grids become *image.NRGBA with
// alpha 255 when the grid has no alpha channel.
func (g *PixelGrid) Image() image.Image {
	rect := image.Rect(0, 0, g.Width, g.Height)
	if g.Channels == 1 {
		img := image.NewGray(rect)
		copy(img.Pix, g.Pix)
		return img
	}
	img := image.NewNRGBA(rect)
	for i := 0; i < g.Len(); i++ {
		src := g.Pix[i*g.Channels:]
		dst := img.Pix[i*4 : i*4+4]
		dst[0], dst[1], dst[2] = src[0], src[1], src[2]
		dst[3] = 255
		if g.Channels >= 4 {
			dst[3] = src[3]
		}
	}
	return img
}

// DecodeConfig reads the dimensions and format name from the image header
// without decoding pixel data.
func DecodeConfig(data []byte) (width, height int, format string, err error) {
	if len(data) == 0 {
		return 0, 0, "", fmt.Errorf("failed to decode image header: empty data")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Decode turns encoded image bytes into a PixelGrid.
//
// Supported formats are PNG, JPEG, GIF and WebP. Grayscale sources decode to
// a 1-channel grid. Everything else is normalised to RGBA; opaque images keep
// three channels, translucent ones keep a fourth with straight alpha.
//
// # Errors
//
//   - Returns error if data is empty
//   - Returns error if the bytes are not a supported image format
func Decode(data []byte) (*PixelGrid, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode image: empty data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	grid := FromImage(img)
	grid.Format = format
	return grid, nil
}

// FromImage converts an image.Image into a PixelGrid.
func FromImage(img image.Image) *PixelGrid {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		grid := NewPixelGrid(width, height, 1)
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+width]
			copy(grid.Pix[y*width:], row)
		}
		return grid
	case *image.Gray16:
		grid := NewPixelGrid(width, height, 1)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y
				grid.Pix[y*width+x] = uint8(v >> 8)
			}
		}
		return grid
	}

	rgba := clone.AsRGBA(img)
	channels := 3
	if !rgba.Opaque() {
		channels = 4
	}

	grid := NewPixelGrid(width, height, channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := rgba.PixOffset(x+rgba.Rect.Min.X, y+rgba.Rect.Min.Y)
			c := color.RGBA{R: rgba.Pix[i], G: rgba.Pix[i+1], B: rgba.Pix[i+2], A: rgba.Pix[i+3]}
			o := (y*width + x) * channels
			if channels == 3 {
				grid.Pix[o], grid.Pix[o+1], grid.Pix[o+2] = c.R, c.G, c.B
				continue
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			grid.Pix[o], grid.Pix[o+1], grid.Pix[o+2], grid.Pix[o+3] = n.R, n.G, n.B, n.A
		}
	}
	return grid
}
