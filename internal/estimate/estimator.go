package estimate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ironsheep/roof-estimator/internal/detection"
	"github.com/ironsheep/roof-estimator/internal/imaging"
	"github.com/ironsheep/roof-estimator/internal/metrics"
	"github.com/ironsheep/roof-estimator/internal/tiles"
)

const tracerName = "github.com/ironsheep/roof-estimator/internal/estimate"

// DefaultEstimate is returned whenever the pipeline cannot produce a figure.
const DefaultEstimate = 4500

// Outcome says whether a result came from the pipeline or the default.
type Outcome string

const (
	OutcomeEstimated Outcome = "estimated"
	OutcomeDefault   Outcome = "default"
)

// Pipeline stages, used to label failures.
const (
	StageCapability = "capability"
	StageCoordinate = "coordinate"
	StageFetch      = "fetch"
	StageDecode     = "decode"
	StageShape      = "shape"
	StageDetect     = "detect"
)

var (
	// ErrUnavailable is returned by Analyze when image analysis is disabled.
	ErrUnavailable = errors.New("image analysis unavailable")

	// ErrCoordinate is returned for coordinates the tile scheme cannot project.
	ErrCoordinate = errors.New("coordinate outside projectable range")

	// ErrShape is returned when a decoded tile is not the expected size.
	ErrShape = errors.New("unexpected tile dimensions")

	errNoTile = errors.New("provider returned no tile")
	errNoMask = errors.New("detector returned no mask")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("estimate: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failed stage recorded in err, or "unknown".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

// Capability is the image analysis capability chosen at construction.
type Capability struct {
	detector detection.MaskDetector
}

// Available enables analysis with the given detector.
func Available(d detection.MaskDetector) Capability {
	return Capability{detector: d}
}

// Unavailable disables analysis. Every estimate is DefaultEstimate and no
// tile is fetched.
func Unavailable() Capability {
	return Capability{}
}

// Enabled reports whether a detector is present.
func (c Capability) Enabled() bool {
	return c.detector != nil
}

// Result is the caller-facing estimate.
type Result struct {
	RoofArea int     `json:"roof_area"`
	Outcome  Outcome `json:"-"`
}

// Analysis is the full record of one successful pipeline run.
type Analysis struct {
	Lat           float64              `json:"lat"`
	Lng           float64              `json:"lng"`
	Tile          tiles.TileCoordinate `json:"tile"`
	Width         int                  `json:"width"`
	Height        int                  `json:"height"`
	Channels      int                  `json:"channels"`
	Format        string               `json:"format"`
	Mask          *detection.Mask      `json:"mask"`
	Bounds        detection.Bounds     `json:"bounds"`
	RawSquareFeet float64              `json:"raw_sqft"`
	RoofArea      int                  `json:"roof_area"`
	Grid          *imaging.PixelGrid   `json:"-"`
}

// Options configures an Estimator. Zero fields take defaults.
type Options struct {
	Zoom int

	// TileSize is the expected tile side in pixels. It gates the shape check
	// and, unless Converter is set, sets the converter's pixels per tile.
	TileSize  int
	Converter *Converter
}

// Estimator runs the coordinate-to-area pipeline.
//
// An Estimator holds no per-call state and is safe for concurrent use.
type Estimator struct {
	provider   tiles.Provider
	capability Capability
	converter  Converter
	zoom       int
	tileSize   int
	tracer     trace.Tracer
}

// New creates an estimator.
func New(provider tiles.Provider, capability Capability, opts Options) *Estimator {
	if opts.Zoom <= 0 {
		opts.Zoom = tiles.DefaultZoom
	}
	if opts.TileSize <= 0 {
		opts.TileSize = TileSidePixels
	}
	// MetersPerTile spans the whole tile whatever its pixel size.
	conv := NewConverter()
	conv.TileSidePixels = float64(opts.TileSize)
	if opts.Converter != nil {
		conv = *opts.Converter
	}
	return &Estimator{
		provider:   provider,
		capability: capability,
		converter:  conv,
		zoom:       opts.Zoom,
		tileSize:   opts.TileSize,
		tracer:     otel.Tracer(tracerName),
	}
}

// Zoom returns the zoom level tiles are fetched at.
func (e *Estimator) Zoom() int { return e.zoom }

// Capability returns the configured analysis capability.
func (e *Estimator) Capability() Capability { return e.capability }

// Estimate returns the roof area for a coordinate. It never fails: any
// pipeline error yields DefaultEstimate with OutcomeDefault.
func (e *Estimator) Estimate(ctx context.Context, lat, lng float64) Result {
	a, err := e.Analyze(ctx, lat, lng)
	if err != nil {
		stage := StageOf(err)
		metrics.EstimateFailures.WithLabelValues(stage).Inc()
		metrics.EstimatesTotal.WithLabelValues(string(OutcomeDefault)).Inc()
		zap.L().Warn("roof estimate fell back to default",
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.String("stage", stage),
			zap.Error(err),
		)
		return Result{RoofArea: DefaultEstimate, Outcome: OutcomeDefault}
	}

	metrics.EstimatesTotal.WithLabelValues(string(OutcomeEstimated)).Inc()
	zap.L().Info("roof estimated",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("tile", a.Tile.String()),
		zap.Int("pixels", a.Mask.Count),
		zap.String("source", string(a.Mask.Source)),
		zap.Int("roof_area", a.RoofArea),
	)
	return Result{RoofArea: a.RoofArea, Outcome: OutcomeEstimated}
}

// Analyze runs the pipeline and reports the first failure as a *StageError.
//
// # Stages
//
//   - capability: analysis disabled (ErrUnavailable)
//   - coordinate: latitude outside the Mercator range or longitude outside
//     [-180, 180] (ErrCoordinate)
//   - fetch: provider error, including timeouts
//   - decode: bytes are not a supported image
//   - shape: decoded size differs from the tile size (ErrShape)
//   - detect: detector error, including detection.ErrUndetectable
func (e *Estimator) Analyze(ctx context.Context, lat, lng float64) (*Analysis, error) {
	ctx, span := e.tracer.Start(ctx, "estimate/analyze", trace.WithAttributes(
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lng", lng),
	))
	defer span.End()

	a, err := e.analyze(ctx, span, lat, lng)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, StageOf(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("mask.count", a.Mask.Count),
		attribute.String("mask.source", string(a.Mask.Source)),
		attribute.Int("roof_area", a.RoofArea),
	)
	return a, nil
}

func (e *Estimator) analyze(ctx context.Context, span trace.Span, lat, lng float64) (*Analysis, error) {
	if !e.capability.Enabled() {
		return nil, &StageError{Stage: StageCapability, Err: ErrUnavailable}
	}
	if !tiles.ValidMercatorLatitude(lat) || math.IsNaN(lng) || lng < -180 || lng > 180 {
		return nil, &StageError{Stage: StageCoordinate, Err: eris.Wrapf(ErrCoordinate, "lat=%v lng=%v", lat, lng)}
	}

	tc := tiles.ToTile(lat, lng, e.zoom)
	span.SetAttributes(attribute.String("tile", tc.String()))

	tile, err := e.fetch(ctx, tc)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	// The header is checked first so an oversized tile is never allocated.
	width, height, _, err := imaging.DecodeConfig(tile.Data)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	if err := e.checkShape(width, height); err != nil {
		return nil, err
	}
	grid, err := imaging.Decode(tile.Data)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	if err := e.checkShape(grid.Width, grid.Height); err != nil {
		return nil, err
	}

	_, detectSpan := e.tracer.Start(ctx, "estimate/detect")
	mask, err := e.capability.detector.Detect(grid)
	detectSpan.End()
	if err == nil && mask == nil {
		err = errNoMask
	}
	if err != nil {
		return nil, &StageError{Stage: StageDetect, Err: err}
	}
	metrics.MaskSourceTotal.WithLabelValues(string(mask.Source)).Inc()

	raw := e.converter.RawSquareFeet(mask.Count)
	return &Analysis{
		Lat:           lat,
		Lng:           lng,
		Tile:          tc,
		Width:         grid.Width,
		Height:        grid.Height,
		Channels:      grid.Channels,
		Format:        grid.Format,
		Mask:          mask,
		Bounds:        mask.Bounds(),
		RawSquareFeet: raw,
		RoofArea:      Bound(raw),
		Grid:          grid,
	}, nil
}

func (e *Estimator) checkShape(width, height int) error {
	if width != e.tileSize || height != e.tileSize {
		err := eris.Wrapf(ErrShape, "got %dx%d, want %dx%d", width, height, e.tileSize, e.tileSize)
		return &StageError{Stage: StageShape, Err: err}
	}
	return nil
}

func (e *Estimator) fetch(ctx context.Context, tc tiles.TileCoordinate) (*tiles.Tile, error) {
	ctx, span := e.tracer.Start(ctx, "estimate/fetch", trace.WithAttributes(
		attribute.String("tile", tc.String()),
	))
	defer span.End()

	tile, err := e.provider.Fetch(ctx, tc)
	if err == nil && tile == nil {
		err = errNoTile
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("tile.bytes", len(tile.Data)))
	return tile, nil
}
