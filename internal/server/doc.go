// Package server implements the HTTP API for roof area estimation.
//
// The server backs a roofing-quote web page: it estimates roof area for a
// coordinate, proxies address geocoding and imagery, and serves the page's
// static assets from a directory.
//
// # Endpoints
//
// Roof estimation:
//   - GET /api/roof-area?lat=&lng=: {"roof_area": N}, always 200 for valid
//     parameters
//   - GET /api/roof-analysis?lat=&lng=: tile, mask statistics and raw area
//     for one pipeline run; 502 when the pipeline fails
//   - GET /api/roof-mask?lat=&lng=&scale=: the tile as PNG with building
//     pixels tinted
//
// Passthrough:
//   - GET /api/geocode?q=&limit=: Nominatim search JSON, 503 when Nominatim
//     is unavailable
//   - GET /api/image?url=: fetches an http(s) image and relays its bytes
//
// Operations:
//   - GET /health: {"status":"ok"}
//   - GET /metrics: Prometheus exposition
//
// Any other GET is served from the static directory. OPTIONS requests are
// answered with permissive CORS headers.
//
// # Error Handling
//
// Parameter errors are 400 responses. Estimation never fails from the
// caller's view; /api/roof-area falls back to the default area instead. All
// error bodies have the form:
//
//	{"error": "<message>"}
//
// A panic in any handler is logged and answered with a generic 500.
//
// # Usage
//
//	srv := server.New(server.Options{
//	    Estimator: est,
//	    Geocoder:  geo,
//	    StaticDir: "./public",
//	})
//	if err := srv.ListenAndServe(ctx, ":8000"); err != nil {
//	    log.Fatal(err)
//	}
package server
