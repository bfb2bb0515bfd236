package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_PNGColor(t *testing.T) {
	data := encodePNG(t, createPatternImage(256, 256))

	grid, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if grid.Width != 256 || grid.Height != 256 {
		t.Errorf("dimensions: got %dx%d, want 256x256", grid.Width, grid.Height)
	}
	if grid.Channels != 3 {
		t.Errorf("Channels: got %d, want 3", grid.Channels)
	}
	if grid.Format != "png" {
		t.Errorf("Format: got %q, want png", grid.Format)
	}

	// Quadrant colors survive the round trip
	tests := []struct {
		x, y    int
		r, g, b uint8
	}{
		{10, 10, 255, 0, 0},
		{200, 10, 0, 255, 0},
		{10, 200, 0, 0, 255},
		{200, 200, 255, 255, 255},
	}
	for _, tt := range tests {
		r, g, b := grid.At(tt.x, tt.y, 0), grid.At(tt.x, tt.y, 1), grid.At(tt.x, tt.y, 2)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("pixel (%d,%d): got (%d,%d,%d), want (%d,%d,%d)", tt.x, tt.y, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestDecode_PNGGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}

	grid, err := Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if grid.Channels != 1 {
		t.Fatalf("Channels: got %d, want 1", grid.Channels)
	}
	if grid.Width != 32 || grid.Height != 16 {
		t.Errorf("dimensions: got %dx%d, want 32x16", grid.Width, grid.Height)
	}
	if grid.At(5, 1, 0) != uint8((1*32+5)%256) {
		t.Errorf("sample (5,1): got %d, want %d", grid.At(5, 1, 0), (1*32+5)%256)
	}
}

func TestDecode_Translucent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 100, 50, 128
	}

	grid, err := Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if grid.Channels != 4 {
		t.Fatalf("Channels: got %d, want 4", grid.Channels)
	}
	if a := grid.At(0, 0, 3); a != 128 {
		t.Errorf("alpha: got %d, want 128", a)
	}
	// Straight alpha is restored within rounding
	if r := grid.At(0, 0, 0); r < 198 || r > 202 {
		t.Errorf("red: got %d, want ~200", r)
	}
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createInMemoryImage(64, 64, color.RGBA{120, 120, 120, 255}), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}

	grid, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if grid.Format != "jpeg" {
		t.Errorf("Format: got %q, want jpeg", grid.Format)
	}
	if !grid.IsColor() {
		t.Errorf("JPEG color source should decode to a color grid, got %d channels", grid.Channels)
	}
}

func TestDecode_GIF(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, createPatternImage(16, 16), nil); err != nil {
		t.Fatalf("failed to encode GIF: %v", err)
	}

	grid, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if grid.Channels != 3 {
		t.Errorf("Channels: got %d, want 3", grid.Channels)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not an image")},
		{"truncated png", []byte("\x89PNG\r\n\x1a\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Error("Decode should fail")
			}
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createInMemoryImage(40, 30, color.White)); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}

	w, h, format, err := DecodeConfig(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if w != 40 || h != 30 {
		t.Errorf("size: got %dx%d, want 40x30", w, h)
	}
	if format != "png" {
		t.Errorf("Format: got %q, want %q", format, "png")
	}

	for _, data := range [][]byte{nil, []byte("this is not an image")} {
		if _, _, _, err := DecodeConfig(data); err == nil {
			t.Errorf("DecodeConfig(%q) should fail", data)
		}
	}
}

func TestPixelGrid_Luma(t *testing.T) {
	grid := NewPixelGrid(4, 1, 3)
	colors := [][3]uint8{
		{0, 0, 0},
		{255, 255, 255},
		{255, 0, 0},
		{90, 90, 90},
	}
	for x, c := range colors {
		grid.Set(x, 0, 0, c[0])
		grid.Set(x, 0, 1, c[1])
		grid.Set(x, 0, 2, c[2])
	}

	luma := grid.Luma()
	want := []uint8{0, 255, 76, 90}
	for i := range want {
		if luma[i] != want[i] {
			t.Errorf("luma[%d]: got %d, want %d", i, luma[i], want[i])
		}
	}
}

func TestPixelGrid_LumaGrayIsCopy(t *testing.T) {
	grid := NewPixelGrid(2, 2, 1)
	grid.Pix[0] = 42

	luma := grid.Luma()
	luma[0] = 7

	if grid.Pix[0] != 42 {
		t.Errorf("Luma must not alias grid samples, grid changed to %d", grid.Pix[0])
	}
}

func TestPixelGrid_ImageRoundTrip(t *testing.T) {
	src := createPatternImage(8, 8)
	grid := FromImage(src)
	back := FromImage(grid.Image())

	if !bytes.Equal(grid.Pix, back.Pix) {
		t.Error("grid -> image -> grid changed samples")
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 14, 12))
	img.Set(10, 10, color.RGBA{1, 2, 3, 255})

	grid := FromImage(img)
	if grid.Width != 4 || grid.Height != 2 {
		t.Fatalf("dimensions: got %dx%d, want 4x2", grid.Width, grid.Height)
	}
	if grid.At(0, 0, 0) != 1 || grid.At(0, 0, 2) != 3 {
		t.Errorf("origin pixel: got (%d,_,%d), want (1,_,3)", grid.At(0, 0, 0), grid.At(0, 0, 2))
	}
}
