// Package config provides configuration management for the Swath Projector
// metadata service.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/nasa/harmony-swath-projector/internal/message"
)

// Config holds the complete application configuration loaded from
// environment variables.
type Config struct {
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Rules        RulesConfig        `envPrefix:"RULES_"`
	Reprojection ReprojectionConfig `envPrefix:"REPROJECTION_"`
	CMR          CMRConfig          `envPrefix:"CMR_"`
	Logging      LoggingConfig      `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// RulesConfig locates the CF metadata override rule document.
type RulesConfig struct {
	Path string `env:"PATH" envDefault:"./config/cf_config.json"`
}

// ReprojectionConfig contains defaults applied to messages that do not name
// a target CRS or interpolation method.
type ReprojectionConfig struct {
	CRS           string `env:"CRS" envDefault:"+proj=longlat +ellps=WGS84"`
	Interpolation string `env:"INTERPOLATION" envDefault:"ewa-nn"`
}

// CMRConfig contains CMR API client configuration.
type CMRConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://cmr.earthdata.nasa.gov/search"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Rules.Path == "" {
		return fmt.Errorf("rule document path is required")
	}

	if c.Reprojection.CRS == "" {
		return fmt.Errorf("default CRS is required")
	}

	if !slices.Contains(message.Interpolations, c.Reprojection.Interpolation) {
		return fmt.Errorf("invalid default interpolation %q, must be one of: %v",
			c.Reprojection.Interpolation, message.Interpolations)
	}

	if c.CMR.BaseURL == "" {
		return fmt.Errorf("CMR base URL is required")
	}

	if c.CMR.Timeout <= 0 {
		return fmt.Errorf("CMR timeout must be positive, got %s", c.CMR.Timeout)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
