package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/roof-estimator/internal/estimate"
	"github.com/ironsheep/roof-estimator/internal/geocode"
	"github.com/ironsheep/roof-estimator/internal/metrics"
)

// Estimator is the roof estimation pipeline the server calls.
type Estimator interface {
	Estimate(ctx context.Context, lat, lng float64) estimate.Result
	Analyze(ctx context.Context, lat, lng float64) (*estimate.Analysis, error)
}

// Geocoder resolves free-text addresses.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]byte, error)
}

// Options configures a Server.
type Options struct {
	Estimator Estimator
	Geocoder  Geocoder

	// StaticDir is served for any GET that matches no API route.
	StaticDir string

	// GeocodeLimit is used when a geocode request omits limit.
	GeocodeLimit int

	// TileSize is the expected tile side in pixels, used to reject mask
	// scales that shrink a tile below one pixel. Defaults to 256.
	TileSize int

	// ImageClient fetches images for the image proxy. Defaults to a client
	// with ImageTimeout.
	ImageClient  *http.Client
	ImageTimeout time.Duration

	// UserAgent is sent on image proxy requests.
	UserAgent string
}

// Server is the HTTP front end for roof estimation.
type Server struct {
	estimator    Estimator
	geocoder     Geocoder
	staticDir    string
	geocodeLimit int
	tileSize     int
	imageClient  *http.Client
	userAgent    string
	router       chi.Router
}

// New creates a server and builds its routes.
func New(opts Options) *Server {
	if opts.StaticDir == "" {
		opts.StaticDir = "."
	}
	if opts.GeocodeLimit <= 0 {
		opts.GeocodeLimit = geocode.DefaultLimit
	}
	if opts.TileSize <= 0 {
		opts.TileSize = estimate.TileSidePixels
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 10 * time.Second
	}
	if opts.ImageClient == nil {
		opts.ImageClient = &http.Client{Timeout: opts.ImageTimeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "RoofEstimator/1.0"
	}

	s := &Server{
		estimator:    opts.Estimator,
		geocoder:     opts.Geocoder,
		staticDir:    opts.StaticDir,
		geocodeLimit: opts.GeocodeLimit,
		tileSize:     opts.TileSize,
		imageClient:  opts.ImageClient,
		userAgent:    opts.UserAgent,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes wires every endpoint.
//
// Middleware order: CORS answers preflights before anything else, the access
// log wraps everything below it, and the recoverer turns handler panics into
// JSON 500s that the access log still records.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(accessLog)
	r.Use(recoverer)

	r.Get("/api/roof-area", s.handleRoofArea)
	r.Get("/api/roof-analysis", s.handleRoofAnalysis)
	r.Get("/api/roof-mask", s.handleRoofMask)
	r.Get("/api/geocode", s.handleGeocode)
	r.Get("/api/image", s.handleImage)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Options("/*", handleOptions)
	r.Get("/*", http.FileServer(http.Dir(s.staticDir)).ServeHTTP)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		zap.L().Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
