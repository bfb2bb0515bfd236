// Package geocode forwards address searches to a Nominatim server.
//
// Responses are relayed verbatim. Outbound requests are rate limited to
// respect the public server's usage policy, and successful responses are
// cached by normalized query.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ironsheep/roof-estimator/internal/cache"
	"github.com/ironsheep/roof-estimator/internal/metrics"
)

const (
	// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies the service to Nominatim.
	DefaultUserAgent = "RoofEstimator/1.0"

	// DefaultLimit is used when the caller passes 0.
	DefaultLimit = 1

	// MaxLimit is the largest result count Nominatim honours.
	MaxLimit = 40

	maxResponseBytes = 2 << 20
)

var (
	// ErrInvalidQuery is returned for an empty query or an out-of-range limit.
	ErrInvalidQuery = errors.New("invalid geocode query")

	// ErrUpstream is returned when Nominatim cannot be reached or answers
	// with a non-success status.
	ErrUpstream = errors.New("nominatim unavailable")
)

// Options configures a Client. Zero fields take defaults.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
	Cache      cache.Cache
	CacheTTL   time.Duration
	Client     *http.Client
}

// Client searches Nominatim. It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	cache     cache.Cache
	ttl       time.Duration
}

// New creates a client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      client,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		cache:     opts.Cache,
		ttl:       opts.CacheTTL,
	}
}

// Search returns the raw JSON body of a Nominatim search for query. A limit
// of 0 means DefaultLimit.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]byte, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.Wrap(ErrInvalidQuery, "geocode: empty query")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, eris.Wrapf(ErrInvalidQuery, "geocode: limit %d outside 1..%d", limit, MaxLimit)
	}

	key := cacheKey(query, limit)
	if body, ok, err := c.cache.Get(ctx, key); err != nil {
		zap.L().Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		metrics.GeocodeRequestsTotal.WithLabelValues("hit").Inc()
		return body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	body, err := c.fetch(ctx, query, limit)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("miss").Inc()

	if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
		zap.L().Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return body, nil
}

// SearchURL builds the upstream request URL.
func (c *Client) SearchURL(query string, limit int) string {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	return c.baseURL + "/search?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(query, limit), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(fmt.Errorf("%w: %v", ErrUpstream, err), "geocode: search")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Wrap(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode), "geocode: search")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(fmt.Errorf("%w: %v", ErrUpstream, err), "geocode: read body")
	}

	zap.L().Debug("geocode search",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}

// cacheKey normalizes case and whitespace so equivalent queries share an entry.
func cacheKey(query string, limit int) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("geocode:%d:%s", limit, q)
}
