package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ironsheep/roof-estimator/internal/estimate"
	"github.com/ironsheep/roof-estimator/internal/geocode"
	"github.com/ironsheep/roof-estimator/internal/imaging"
)

// maxProxyBytes caps the body relayed by the image proxy.
const maxProxyBytes = 20 << 20

// === Roof Handlers ===

// handleRoofArea answers GET /api/roof-area?lat=&lng= with {"roof_area": N}.
//
// Only parameter errors produce a non-200 status; estimation itself always
// yields a number.
func (s *Server) handleRoofArea(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoordinate(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.estimator.Estimate(r.Context(), lat, lng)
	writeJSON(w, http.StatusOK, result)
}

// analysisResponse is the body of GET /api/roof-analysis.
type analysisResponse struct {
	*estimate.Analysis
	Outcome estimate.Outcome `json:"outcome"`
}

// handleRoofAnalysis answers GET /api/roof-analysis with the intermediate
// values of one pipeline run. Pipeline failures are reported as 502.
func (s *Server) handleRoofAnalysis(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoordinate(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.estimator.Analyze(r.Context(), lat, lng)
	if err != nil {
		errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Analysis: a, Outcome: estimate.OutcomeEstimated})
}

// handleRoofMask answers GET /api/roof-mask with the fetched tile as PNG, the
// detected building pixels tinted.
//
// # Parameters
//
//   - lat, lng: required coordinate
//   - scale: optional resize factor, 0 < scale <= imaging.MaxOverlayScale
func (s *Server) handleRoofMask(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoordinate(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	scale := 1.0
	if raw := r.URL.Query().Get("scale"); raw != "" {
		scale, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(scale) || scale <= 0 || scale > imaging.MaxOverlayScale {
			errorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid 'scale' parameter: must be > 0 and <= %g", imaging.MaxOverlayScale))
			return
		}
		if scaledSide(s.tileSize, scale) < 1 {
			errorResponse(w, http.StatusBadRequest, errScaleCollapses)
			return
		}
	}

	a, err := s.estimator.Analyze(r.Context(), lat, lng)
	if err != nil {
		errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	if scaledSide(a.Grid.Width, scale) < 1 || scaledSide(a.Grid.Height, scale) < 1 {
		errorResponse(w, http.StatusBadRequest, errScaleCollapses)
		return
	}

	overlay, err := imaging.RenderMaskOverlay(a.Grid, a.Mask.Bits, imaging.OverlayOptions{Scale: scale})
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", overlay.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(overlay.PNG)))
	w.Header().Set("X-Roof-Area", strconv.Itoa(a.RoofArea))
	w.Header().Set("X-Mask-Pixels", strconv.Itoa(a.Mask.Count))
	w.Header().Set("X-Mask-Source", string(a.Mask.Source))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(overlay.PNG)
}

// === Passthrough Handlers ===

// handleGeocode relays a Nominatim search. Upstream failures are 503.
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		errorResponse(w, http.StatusBadRequest, "Missing 'q' parameter")
		return
	}

	limit := s.geocodeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > geocode.MaxLimit {
			errorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid 'limit' parameter: must be an integer between 1 and %d", geocode.MaxLimit))
			return
		}
		limit = n
	}

	body, err := s.geocoder.Search(r.Context(), q, limit)
	if err != nil {
		if errors.Is(err, geocode.ErrInvalidQuery) {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		errorResponse(w, http.StatusServiceUnavailable, "Nominatim unavailable: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleImage fetches an http(s) URL and relays the bytes with the upstream
// content type. Any fetch failure is a 500.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		errorResponse(w, http.StatusBadRequest, "Missing 'url' parameter")
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		errorResponse(w, http.StatusBadRequest, "Invalid 'url' parameter: must be an absolute http or https URL")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.imageClient.Do(req)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorResponse(w, http.StatusInternalServerError, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBytes))
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// === Utility Handlers ===

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOptions answers any OPTIONS request that is not a CORS preflight.
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS, POST")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

// === Helpers ===

const errScaleCollapses = "Invalid 'scale' parameter: scaled tile would be smaller than one pixel"

// scaledSide is the pixel length of side after resizing by scale.
func scaledSide(side int, scale float64) int {
	return int(float64(side) * scale)
}

// parseCoordinate reads and validates the lat and lng query parameters.
func parseCoordinate(r *http.Request) (lat, lng float64, err error) {
	lat, err = parseFloatParam(r, "lat", 90)
	if err != nil {
		return 0, 0, err
	}
	lng, err = parseFloatParam(r, "lng", 180)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// parseFloatParam parses a required finite parameter within [-bound, bound].
func parseFloatParam(r *http.Request, name string, bound float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("Missing '%s' parameter", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("Invalid '%s' parameter: must be a number", name)
	}
	if v < -bound || v > bound {
		return 0, fmt.Errorf("Invalid '%s' parameter: must be between %g and %g", name, -bound, bound)
	}
	return v, nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// errorResponse writes {"error": message}.
func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
