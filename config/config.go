// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the geosan settings from defaults, an optional
// geosan.yaml, GEOSAN_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Registry RegistryConfig `mapstructure:"registry"`
	Match    MatchConfig    `mapstructure:"match"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	PostGIS  PostGISConfig  `mapstructure:"postgis"`
}

// DBConfig locates the DuckDB database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// RegistryConfig locates the reference data files.
type RegistryConfig struct {
	Addresses          string `mapstructure:"addresses"`
	Centroids          string `mapstructure:"centroids"`
	CentroidsNameField string `mapstructure:"centroids_name_field"`
	CentroidsPostal    string `mapstructure:"centroids_postal_field"`
}

// MatchConfig tunes fuzzy street matching.
type MatchConfig struct {
	Cutoff    float64  `mapstructure:"cutoff"`
	Stopwords []string `mapstructure:"stopwords"`
}

// RemoteConfig configures the geo.admin.ch search.
type RemoteConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	Delay      time.Duration `mapstructure:"delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint          `mapstructure:"max_retries"`
	TraceHTTP  bool          `mapstructure:"trace_http"`
}

// BatchConfig bounds batch parallelism.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// PostGISConfig locates the warehouse tables.
type PostGISConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Table  string `mapstructure:"table"`
}

// New returns a viper instance with the defaults and the environment
// bound. An empty configFile searches geosan.yaml in the working directory.
func New(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("geosan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GEOSAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.path", "geosan.duckdb")
	v.SetDefault("registry.centroids_name_field", "ORTSCHAFTS")
	v.SetDefault("registry.centroids_postal_field", "PLZ")
	v.SetDefault("match.cutoff", 0.9)
	v.SetDefault("match.stopwords", []string{"CHEMIN", "RUE", "AVENUE", "ROUTE", "RUELLE", "CH.", "AV.", "RTE"})
	v.SetDefault("remote.enabled", true)
	v.SetDefault("remote.url", "https://api3.geo.admin.ch/rest/services/api/SearchServer")
	v.SetDefault("remote.delay", 100*time.Millisecond)
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("remote.max_retries", 3)
	v.SetDefault("remote.trace_http", false)
	v.SetDefault("batch.concurrency", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.listen", "localhost:8080")
	v.SetDefault("postgis.schema", "public")
	v.SetDefault("postgis.table", "geocoded_addresses")

	return v
}

// Load reads the optional config file and returns the validated settings.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the ranges of numeric settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Match.Cutoff < 0 || c.Match.Cutoff > 1 {
		errs = append(errs, fmt.Errorf("match.cutoff must be in [0, 1], got %v", c.Match.Cutoff))
	}

	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency))
	}

	if c.Remote.Delay < 0 {
		errs = append(errs, fmt.Errorf("remote.delay must not be negative, got %v", c.Remote.Delay))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// InitLogger replaces the global zap logger.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.DisableStacktrace = true
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	return nil
}
