// Package imaging decodes imagery tiles into pixel grids and provides the
// low-level raster operations used by building detection.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Samples are stored row-major, channels interleaved
//
// # Channel Layout
//
// A PixelGrid carries one of three layouts:
//   - 1 channel: 8-bit luma (grayscale sources)
//   - 3 channels: 8-bit R, G, B (opaque color sources)
//   - 4 channels: 8-bit R, G, B, A with straight alpha (translucent sources)
//
// Luma is derived with the ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
// in fixed point, rounded to the nearest integer.
//
// # Thread Safety
//
// Every function here is stateless. A PixelGrid is not mutated after
// construction by anything in this package, so grids may be shared across
// goroutines for reading.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty or undecodable image data
//   - Mask dimensions that do not match the grid
//   - Encoding errors during PNG output
package imaging
