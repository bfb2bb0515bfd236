package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/roof-estimator/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "estimate", "tile", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "roof-estimator", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("static-dir"))
}

func TestEstimateCommand_Flags(t *testing.T) {
	for _, name := range []string{"lat", "lng", "analysis"} {
		assert.NotNil(t, estimateCmd.Flags().Lookup(name), "estimate should have --%s", name)
	}
	assert.NotNil(t, tileCmd.Flags().Lookup("zoom"))
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		wantErr  bool
	}{
		{"origin", 0, 0, false},
		{"new york", 40.7128, -74.006, false},
		{"lat bound", 90, 180, false},
		{"lat too high", 90.1, 0, true},
		{"lng too low", 0, -180.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCoordinate(tt.lat, tt.lng)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "roof-estimator dev")
	assert.Contains(t, out.String(), "Git commit: unknown")
}

func TestTileCommand(t *testing.T) {
	cfg = &config.Config{Tiles: config.TilesConfig{
		URLTemplate: "https://tiles.example.com/{z}/{x}/{y}",
		Zoom:        18,
		TimeoutSecs: 10,
	}}
	t.Cleanup(func() { cfg = nil })

	estimateLat, estimateLng, tileZoom = 0, 0, 0
	var out bytes.Buffer
	tileCmd.SetOut(&out)
	require.NoError(t, tileCmd.RunE(tileCmd, nil))

	assert.JSONEq(t,
		`{"z":18,"x":131072,"y":131072,"url":"https://tiles.example.com/18/131072/131072"}`,
		out.String())
}

func TestNewEstimator_Capability(t *testing.T) {
	c := &config.Config{Tiles: config.TilesConfig{Zoom: 17, Size: 256, TimeoutSecs: 10}}

	c.Analysis.Enabled = true
	est := newEstimator(c, newTileProvider(c))
	assert.True(t, est.Capability().Enabled())
	assert.Equal(t, 17, est.Zoom())

	c.Analysis.Enabled = false
	assert.False(t, newEstimator(c, newTileProvider(c)).Capability().Enabled())
}

func TestNewGeocoder_UnknownCache(t *testing.T) {
	c := &config.Config{Cache: config.CacheConfig{Driver: "memcached"}}
	_, _, err := newGeocoder(c)
	assert.Error(t, err)
}
