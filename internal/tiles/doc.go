// Package tiles maps geographic coordinates onto the slippy-map tile grid and
// fetches imagery tiles from a remote tile service.
//
// # Tiling Scheme
//
// Tiles follow the Web Mercator scheme used by most web map services. At zoom
// level z the world is divided into 2^z × 2^z square tiles, indexed by integer
// (x, y) with (0, 0) at the north-west corner:
//   - X increases eastward from longitude -180
//   - Y increases southward from latitude +85.0511
//
// The projection is undefined at the poles. ToTile assumes the caller has
// already checked the latitude with ValidMercatorLatitude.
//
// # Fetching
//
// Provider is the contract the estimator depends on. HTTPProvider is the
// production implementation: one GET per tile, a fixed timeout, no retries.
// Tile services are treated as unreliable and every failure is returned to
// the caller as an error.
package tiles
