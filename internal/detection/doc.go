// Package detection classifies imagery pixels as building or background.
//
// The classifier is a heuristic, not a trained model. It is designed to give a
// ballpark footprint for a single residential building centered in a
// satellite tile, and is allowed to be wrong.
//
// # Algorithm Overview
//
//  1. Luma: convert the tile to single-channel brightness
//  2. Gradients: finite differences along X and Y, magnitude sqrt(gx² + gy²)
//  3. Edge mask: magnitude above the 75th percentile of all magnitudes
//  4. Dark mask: luma below 150
//  5. Building mask: edge AND dark
//  6. Fallback: if fewer than 100 pixels survive, color tiles switch to a
//     chroma-variance mask (per-pixel stddev across R, G, B above 30);
//     grayscale tiles report ErrUndetectable
//
// Edges plus darkness approximate rooftop and structure boundaries against
// lawns and pavement. The variance fallback catches flat, evenly lit roofs
// that produce too few gradient edges.
//
// # Coordinate System
//
// Masks are row-major over the tile with (0, 0) at the top-left, matching
// imaging.PixelGrid.
//
// # Limitations
//
//   - Tree canopy and shadows are dark and edgy, so they are counted as roof
//   - Neighboring buildings in the same tile are counted together
//   - Thresholds assume 8-bit samples
package detection
