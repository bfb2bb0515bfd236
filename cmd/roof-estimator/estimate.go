package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/ironsheep/roof-estimator/internal/tiles"
)

var (
	estimateLat      float64
	estimateLng      float64
	estimateAnalysis bool
	tileZoom         int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate roof area for one coordinate",
	Long:  `Prints {"roof_area": N}. With --analysis, prints the full pipeline record and fails if the pipeline fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateCoordinate(estimateLat, estimateLng); err != nil {
			return err
		}
		est := newEstimator(cfg, newTileProvider(cfg))
		enc := json.NewEncoder(cmd.OutOrStdout())

		if estimateAnalysis {
			a, err := est.Analyze(cmd.Context(), estimateLat, estimateLng)
			if err != nil {
				return err
			}
			return enc.Encode(a)
		}
		return enc.Encode(est.Estimate(cmd.Context(), estimateLat, estimateLng))
	},
}

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Print the tile coordinate and URL for a location",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateCoordinate(estimateLat, estimateLng); err != nil {
			return err
		}
		if !tiles.ValidMercatorLatitude(estimateLat) {
			return fmt.Errorf("latitude %v is outside the Web Mercator range", estimateLat)
		}
		zoom := tileZoom
		if zoom == 0 {
			zoom = cfg.Tiles.Zoom
		}
		tc := tiles.ToTile(estimateLat, estimateLng, zoom)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
			tiles.TileCoordinate
			URL string `json:"url"`
		}{tc, newTileProvider(cfg).URL(tc)})
	},
}

// validateCoordinate applies the same bounds as the HTTP API.
func validateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("invalid --lat %v: must be between -90 and 90", lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return fmt.Errorf("invalid --lng %v: must be between -180 and 180", lng)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{estimateCmd, tileCmd} {
		c.Flags().Float64Var(&estimateLat, "lat", 0, "latitude in degrees")
		c.Flags().Float64Var(&estimateLng, "lng", 0, "longitude in degrees")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lng")
	}
	estimateCmd.Flags().BoolVar(&estimateAnalysis, "analysis", false, "print the full analysis instead of the area")
	tileCmd.Flags().IntVar(&tileZoom, "zoom", 0, "zoom level (default from config)")
	rootCmd.AddCommand(estimateCmd, tileCmd)
}
