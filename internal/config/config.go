// Package config loads the server configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Directions DirectionsConfig `yaml:"directions"`
	Navigation NavigationConfig `yaml:"navigation"`
	Position   PositionConfig   `yaml:"position"`
	Cache      CacheConfig      `yaml:"cache"`
	Suggest    SuggestConfig    `yaml:"suggest"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// DirectionsConfig holds directions provider settings
type DirectionsConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gt=0"`
}

// Timeout returns the request timeout as a duration
func (c DirectionsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// NavigationConfig tunes the progress tracker
type NavigationConfig struct {
	TurnAdvanceThresholdKm float64 `yaml:"turn_advance_threshold_km" validate:"gt=0"`
}

// PositionConfig tunes the position polling cadence
type PositionConfig struct {
	MinIntervalMs     int     `yaml:"min_interval_ms" validate:"gt=0"`
	MinDistanceMeters float64 `yaml:"min_distance_meters" validate:"gte=0"`
}

// MinInterval returns the poll period as a duration
func (c PositionConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

// CacheConfig tunes route caching
type CacheConfig struct {
	RouteTTLSeconds        int `yaml:"route_ttl_seconds" validate:"gt=0"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds" validate:"gt=0"`
}

// RouteTTL returns the route cache TTL as a duration
func (c CacheConfig) RouteTTL() time.Duration {
	return time.Duration(c.RouteTTLSeconds) * time.Second
}

// CleanupInterval returns the cleanup period as a duration
func (c CacheConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// SuggestConfig tunes nearest-suggestion ranking
type SuggestConfig struct {
	RadiusKm float64 `yaml:"radius_km" validate:"gt=0"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	JaegerEndpoint string `yaml:"jaeger_endpoint" validate:"omitempty,url"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8085},
		Directions: DirectionsConfig{
			TimeoutMs: 10000,
		},
		Navigation: NavigationConfig{
			TurnAdvanceThresholdKm: 0.05,
		},
		Position: PositionConfig{
			MinIntervalMs:     3000,
			MinDistanceMeters: 10,
		},
		Cache: CacheConfig{
			RouteTTLSeconds:        300,
			CleanupIntervalSeconds: 600,
		},
		Suggest: SuggestConfig{RadiusKm: 5},
		Tracing: TracingConfig{
			ServiceName:    "navigator",
			JaegerEndpoint: "http://localhost:14268/api/traces",
		},
	}
}

// Load reads and validates configuration. A missing file is not an
// error: defaults apply, with NAVIGATOR_API_KEY still honored so
// deployments can run config-free.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Secrets come from the environment, never the file
	if key := os.Getenv("NAVIGATOR_API_KEY"); key != "" {
		cfg.Directions.APIKey = key
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
