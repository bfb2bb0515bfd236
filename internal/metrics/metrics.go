// Package metrics holds the Prometheus collectors shared by the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EstimatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_estimates_total",
		Help: "Roof area estimates by outcome (estimated or default)",
	}, []string{"outcome"})
	EstimateFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_estimate_failures_total",
		Help: "Pipeline failures that fell back to the default estimate, by stage",
	}, []string{"stage"})
	MaskSourceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_mask_source_total",
		Help: "Building masks by the rule that produced them",
	}, []string{"source"})
	TileFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roof_tile_fetch_duration_seconds",
		Help:    "Tile fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
	TileFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_tile_fetch_failures_total",
		Help: "Tile fetch failures by kind",
	}, []string{"kind"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_geocode_requests_total",
		Help: "Geocode lookups by result (hit, miss, error)",
	}, []string{"result"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roof_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roof_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(EstimatesTotal)
	prometheus.MustRegister(EstimateFailures)
	prometheus.MustRegister(MaskSourceTotal)
	prometheus.MustRegister(TileFetchDuration)
	prometheus.MustRegister(TileFetchFailures)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
