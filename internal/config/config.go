package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/place-enrich/pkg/google"
)

// Cache drivers.
const (
	CacheDriverFile     = "file"
	CacheDriverSQLite   = "sqlite"
	CacheDriverPostgres = "postgres"
	CacheDriverRedis    = "redis"
)

// Config holds the full application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Maps Platform settings.
type GoogleConfig struct {
	APIKey           string   `yaml:"api_key" mapstructure:"api_key"`
	GeocodeURL       string   `yaml:"geocode_url" mapstructure:"geocode_url"`
	DetailsURL       string   `yaml:"details_url" mapstructure:"details_url"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PlaceFields      []string `yaml:"place_fields" mapstructure:"place_fields"`
	MaxAttempts      int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// GeocodeConfig configures address resolution.
type GeocodeConfig struct {
	Bounds  google.Bounds `yaml:"bounds" mapstructure:"bounds"`
	DelayMs int           `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// PlacesConfig configures place-detail resolution.
type PlacesConfig struct {
	DelayMs int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// CacheConfig selects and configures the blob cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB     int    `yaml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// EnrichConfig configures the enrichment run.
type EnrichConfig struct {
	AddressColumn   string `yaml:"address_column" mapstructure:"address_column"`
	InputEncoding   string `yaml:"input_encoding" mapstructure:"input_encoding"`
	ContinueOnError bool   `yaml:"continue_on_error" mapstructure:"continue_on_error"`
}

// PricingConfig holds Google Maps Platform list prices in USD per 1000 calls.
type PricingConfig struct {
	GeocodePer1000 float64 `yaml:"geocode_per_1000" mapstructure:"geocode_per_1000"`
	DetailsPer1000 float64 `yaml:"details_per_1000" mapstructure:"details_per_1000"`
}

// MonitoringConfig configures run alerts. An empty WebhookURL disables
// delivery.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("google.api_key", "ENRICH_GOOGLE_API_KEY", "GOOGLE_MAPS_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind api key")
	}

	// Defaults
	v.SetDefault("google.geocode_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("google.details_url", "https://maps.googleapis.com/maps/api/place/details/json")
	v.SetDefault("google.timeout_secs", 10)
	v.SetDefault("google.place_fields", google.DefaultPlaceFields)
	v.SetDefault("google.max_attempts", 1)
	v.SetDefault("google.initial_backoff_ms", 500)
	v.SetDefault("google.max_backoff_ms", 10000)
	v.SetDefault("geocode.bounds.northeast.lat", 30.620516)
	v.SetDefault("geocode.bounds.northeast.lng", -97.949466)
	v.SetDefault("geocode.bounds.southwest.lat", 29.949317)
	v.SetDefault("geocode.bounds.southwest.lng", -97.562198)
	v.SetDefault("geocode.delay_ms", 10)
	v.SetDefault("places.delay_ms", 10)
	v.SetDefault("cache.driver", CacheDriverFile)
	v.SetDefault("cache.dir", "data")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "place-enrich")
	v.SetDefault("enrich.address_column", "ADDRESS")
	v.SetDefault("enrich.input_encoding", "utf-8")
	v.SetDefault("enrich.continue_on_error", false)
	v.SetDefault("pricing.geocode_per_1000", 5.00)
	v.SetDefault("pricing.details_per_1000", 17.00)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.cost_threshold_usd", 0.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validation modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Validate checks settings that would otherwise fail deep inside a run.
// Offline runs read only the cache and do not need an API key.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case ModeOnline:
		if c.Google.APIKey == "" {
			problems = append(problems, "google.api_key is required (set GOOGLE_MAPS_API_KEY)")
		}
	case ModeOffline:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if err := c.Geocode.Bounds.Validate(); err != nil {
		problems = append(problems, "geocode.bounds: "+err.Error())
	}
	if c.Geocode.DelayMs < 0 || c.Places.DelayMs < 0 {
		problems = append(problems, "geocode.delay_ms and places.delay_ms must be >= 0")
	}
	if strings.TrimSpace(c.Enrich.AddressColumn) == "" {
		problems = append(problems, "enrich.address_column is required")
	}

	drivers := []string{CacheDriverFile, CacheDriverSQLite, CacheDriverPostgres, CacheDriverRedis}
	switch {
	case !slices.Contains(drivers, c.Cache.Driver):
		problems = append(problems, fmt.Sprintf("cache.driver %q must be one of %s", c.Cache.Driver, strings.Join(drivers, ", ")))
	case c.Cache.Driver == CacheDriverPostgres && c.Cache.DatabaseURL == "":
		problems = append(problems, "cache.database_url is required for the postgres driver")
	case c.Cache.Driver == CacheDriverFile && c.Cache.Dir == "":
		problems = append(problems, "cache.dir is required for the file driver")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  %s", strings.Join(problems, "\n  "))
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
