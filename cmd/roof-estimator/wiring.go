package main

import (
	"github.com/ironsheep/roof-estimator/internal/cache"
	"github.com/ironsheep/roof-estimator/internal/config"
	"github.com/ironsheep/roof-estimator/internal/detection"
	"github.com/ironsheep/roof-estimator/internal/estimate"
	"github.com/ironsheep/roof-estimator/internal/geocode"
	"github.com/ironsheep/roof-estimator/internal/tiles"
)

// newTileProvider builds the HTTP tile source from config.
func newTileProvider(c *config.Config) *tiles.HTTPProvider {
	return tiles.NewHTTPProvider(tiles.HTTPOptions{
		URLTemplate: c.Tiles.URLTemplate,
		Timeout:     c.Tiles.Timeout(),
		UserAgent:   c.Tiles.UserAgent,
	})
}

// newEstimator chooses the analysis capability once, at startup.
func newEstimator(c *config.Config, provider tiles.Provider) *estimate.Estimator {
	capability := estimate.Unavailable()
	if c.Analysis.Enabled {
		capability = estimate.Available(detection.NewBuildingDetector())
	}
	return estimate.New(provider, capability, estimate.Options{
		Zoom:     c.Tiles.Zoom,
		TileSize: c.Tiles.Size,
	})
}

// newGeocoder builds the Nominatim client and its response cache. The caller
// closes the returned cache.
func newGeocoder(c *config.Config) (*geocode.Client, cache.Cache, error) {
	store, err := cache.New(cache.Options{
		Driver:        c.Cache.Driver,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		KeyPrefix:     c.Cache.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	client := geocode.New(geocode.Options{
		BaseURL:    c.Geocode.BaseURL,
		UserAgent:  c.Geocode.UserAgent,
		Timeout:    c.Geocode.Timeout(),
		RatePerSec: c.Geocode.RatePerSec,
		Cache:      store,
		CacheTTL:   c.Geocode.CacheTTL(),
	})
	return client, store, nil
}
