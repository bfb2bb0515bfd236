package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp switches into an empty directory so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ".", cfg.Server.StaticDir)
	assert.Equal(t, 18, cfg.Tiles.Zoom)
	assert.Equal(t, 256, cfg.Tiles.Size)
	assert.Equal(t, 10*time.Second, cfg.Tiles.Timeout())
	assert.Contains(t, cfg.Tiles.URLTemplate, "World_Imagery/MapServer/tile/{z}/{x}/{y}")
	assert.True(t, cfg.Analysis.Enabled)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, "RoofEstimator/1.0", cfg.Geocode.UserAgent)
	assert.Equal(t, 10*time.Second, cfg.Geocode.Timeout())
	assert.InDelta(t, 1.0, cfg.Geocode.RatePerSec, 0.001)
	assert.Equal(t, 24*time.Hour, cfg.Geocode.CacheTTL())
	assert.Equal(t, 1, cfg.Geocode.DefaultLimit)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
	assert.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0.001)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
server:
  port: 9090
tiles:
  zoom: 17
analysis:
  enabled: false
cache:
  driver: none
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 17, cfg.Tiles.Zoom)
	assert.False(t, cfg.Analysis.Enabled)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 256, cfg.Tiles.Size)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
tiles:
  zoom: 17
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ROOF_TILES_ZOOM", "19")
	t.Setenv("ROOF_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 19, cfg.Tiles.Zoom)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ROOF_SERVER_PORT", "3000")
	t.Setenv("ROOF_CACHE_DRIVER", "redis")
	t.Setenv("ROOF_CACHE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Cleanup(func() { os.Unsetenv("ROOF_GEOCODE_USER_AGENT") })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ROOF_GEOCODE_USER_AGENT=QuoteTool/2.0 (ops@example.com)\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "QuoteTool/2.0 (ops@example.com)", cfg.Geocode.UserAgent)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000, StaticDir: "."},
		Tiles: TilesConfig{
			URLTemplate: "https://tiles.example.com/{z}/{x}/{y}",
			Zoom:        18,
			Size:        256,
			TimeoutSecs: 10,
		},
		Geocode: GeocodeConfig{TimeoutSecs: 10, RatePerSec: 1, CacheTTLSecs: 86400},
		Image:   ImageConfig{TimeoutSecs: 10},
		Cache:   CacheConfig{Driver: "memory"},
		Tracing: TracingConfig{SampleRatio: 1},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zoom zero", func(c *Config) { c.Tiles.Zoom = 0 }, true},
		{"zoom one", func(c *Config) { c.Tiles.Zoom = 1 }, false},
		{"zoom too high", func(c *Config) { c.Tiles.Zoom = 23 }, true},
		{"negative zoom", func(c *Config) { c.Tiles.Zoom = -1 }, true},
		{"zero tile size", func(c *Config) { c.Tiles.Size = 0 }, true},
		{"zero tile timeout", func(c *Config) { c.Tiles.TimeoutSecs = 0 }, true},
		{"template missing placeholder", func(c *Config) { c.Tiles.URLTemplate = "https://tiles.example.com/{z}/{x}" }, true},
		{"zero geocode timeout", func(c *Config) { c.Geocode.TimeoutSecs = 0 }, true},
		{"zero geocode rate", func(c *Config) { c.Geocode.RatePerSec = 0 }, true},
		{"negative cache ttl", func(c *Config) { c.Geocode.CacheTTLSecs = -1 }, true},
		{"zero image timeout", func(c *Config) { c.Image.TimeoutSecs = 0 }, true},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, true},
		{"redis without addr", func(c *Config) { c.Cache.Driver = "redis" }, true},
		{"redis with addr", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.RedisAddr = "localhost:6379" }, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"sample ratio above one", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
