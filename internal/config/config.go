package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Tiles    TilesConfig    `yaml:"tiles" mapstructure:"tiles"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Image    ImageConfig    `yaml:"image" mapstructure:"image"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Tracing  TracingConfig  `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
}

// TilesConfig configures the satellite tile source.
type TilesConfig struct {
	URLTemplate string `yaml:"url_template" mapstructure:"url_template"`
	Zoom        int    `yaml:"zoom" mapstructure:"zoom"`
	Size        int    `yaml:"size" mapstructure:"size"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the tile fetch timeout.
func (c TilesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnalysisConfig toggles the image analysis capability.
type AnalysisConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// GeocodeConfig configures the Nominatim passthrough.
type GeocodeConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheTTLSecs int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	DefaultLimit int     `yaml:"default_limit" mapstructure:"default_limit"`
}

// Timeout returns the upstream request timeout.
func (c GeocodeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns how long geocode responses are kept.
func (c GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// ImageConfig configures the image proxy.
type ImageConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the image proxy fetch timeout.
func (c ImageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheConfig selects the geocode response cache.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter    string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio"`
}

// Load reads configuration from .env, config.yaml and the environment.
// Environment variables use the ROOF_ prefix with dots replaced by
// underscores, e.g. ROOF_TILES_ZOOM.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.static_dir", ".")
	v.SetDefault("tiles.url_template", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{x}/{y}")
	v.SetDefault("tiles.zoom", 18)
	v.SetDefault("tiles.size", 256)
	v.SetDefault("tiles.timeout_secs", 10)
	v.SetDefault("tiles.user_agent", "RoofEstimator/1.0")
	v.SetDefault("analysis.enabled", true)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "RoofEstimator/1.0")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("geocode.cache_ttl_secs", 86400)
	v.SetDefault("geocode.default_limit", 1)
	v.SetDefault("image.timeout_secs", 10)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "roof:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "roof-estimator")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Tiles.Zoom < 1 || c.Tiles.Zoom > 22 {
		return eris.Errorf("config: tiles.zoom %d must be between 1 and 22", c.Tiles.Zoom)
	}
	if c.Tiles.Size <= 0 {
		return eris.Errorf("config: tiles.size must be positive, got %d", c.Tiles.Size)
	}
	if c.Tiles.TimeoutSecs <= 0 {
		return eris.New("config: tiles.timeout_secs must be positive")
	}
	if !strings.Contains(c.Tiles.URLTemplate, "{z}") ||
		!strings.Contains(c.Tiles.URLTemplate, "{x}") ||
		!strings.Contains(c.Tiles.URLTemplate, "{y}") {
		return eris.Errorf("config: tiles.url_template %q needs {z}, {x} and {y}", c.Tiles.URLTemplate)
	}
	if c.Geocode.TimeoutSecs <= 0 {
		return eris.New("config: geocode.timeout_secs must be positive")
	}
	if c.Geocode.RatePerSec <= 0 {
		return eris.New("config: geocode.rate_per_sec must be positive")
	}
	if c.Geocode.CacheTTLSecs < 0 {
		return eris.New("config: geocode.cache_ttl_secs must not be negative")
	}
	if c.Image.TimeoutSecs <= 0 {
		return eris.New("config: image.timeout_secs must be positive")
	}
	switch c.Cache.Driver {
	case "", "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return eris.New("config: cache.redis_addr is required for the redis driver")
		}
	default:
		return eris.Errorf("config: unknown cache.driver %q", c.Cache.Driver)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return eris.Errorf("config: tracing.sample_ratio %v must be between 0 and 1", c.Tracing.SampleRatio)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
