package tiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/roof-estimator/internal/metrics"
)

// DefaultURLTemplate points at the ArcGIS World Imagery tile service.
const DefaultURLTemplate = "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{x}/{y}"

// DefaultTimeout bounds a single tile fetch.
const DefaultTimeout = 10 * time.Second

// maxTileBytes caps the response body read from the tile service.
const maxTileBytes = 8 << 20

// ErrStatus is returned when the tile service answers with a non-2xx status.
var ErrStatus = errors.New("tile service returned non-success status")

// Tile is the raw image payload for one tile.
type Tile struct {
	Coordinate  TileCoordinate
	Data        []byte
	ContentType string
}

// Provider fetches tile imagery. Fetch returns a non-nil Tile whenever err
// is nil.
type Provider interface {
	Fetch(ctx context.Context, tc TileCoordinate) (*Tile, error)
}

// HTTPOptions configures an HTTPProvider.
type HTTPOptions struct {
	// URLTemplate contains {z}, {x} and {y} placeholders.
	URLTemplate string
	Timeout     time.Duration
	UserAgent   string
	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// HTTPProvider fetches tiles over HTTP with a single attempt per call.
type HTTPProvider struct {
	client    *http.Client
	template  string
	userAgent string
}

// NewHTTPProvider creates a provider, filling unset options with defaults.
func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "RoofEstimator/1.0"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPProvider{
		client:    client,
		template:  opts.URLTemplate,
		userAgent: opts.UserAgent,
	}
}

// URL expands the template for a tile.
func (p *HTTPProvider) URL(tc TileCoordinate) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(tc.Zoom),
		"{x}", strconv.Itoa(tc.X),
		"{y}", strconv.Itoa(tc.Y),
	)
	return r.Replace(p.template)
}

// Fetch downloads one tile. Timeouts, transport errors and non-2xx responses
// are all returned as errors; nothing is retried.
func (p *HTTPProvider) Fetch(ctx context.Context, tc TileCoordinate) (*Tile, error) {
	u := p.URL(tc)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tiles: build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	metrics.TileFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TileFetchFailures.WithLabelValues("transport").Inc()
		return nil, eris.Wrapf(err, "tiles: fetch %s", tc)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.TileFetchFailures.WithLabelValues("status").Inc()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Wrap(fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode), "tiles: fetch "+tc.String())
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		metrics.TileFetchFailures.WithLabelValues("read").Inc()
		return nil, eris.Wrapf(err, "tiles: read body %s", tc)
	}

	zap.L().Debug("tile fetched",
		zap.String("tile", tc.String()),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Tile{
		Coordinate:  tc,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
