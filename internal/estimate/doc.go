// Package estimate turns a coordinate into a roof area in square feet.
//
// The Estimator maps the coordinate to a tile, fetches and decodes it, runs
// the building mask detector, and converts the masked pixel count with a
// Converter. Estimate is fail-soft: every failure yields DefaultEstimate.
// Analyze exposes the same pipeline with its errors and intermediate values
// for diagnostics.
package estimate
