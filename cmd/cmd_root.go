// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/config"
	"github.com/geosan/geosan/geoadmin"
	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/utils/httputils"
)

var (
	configFile string
	cfg        *config.Config
)

// flagKeys maps command flags to the configuration keys they override.
var flagKeys = map[string]string{
	"db-path":     "db.path",
	"log-level":   "log.level",
	"listen":      "server.listen",
	"concurrency": "batch.concurrency",
}

var rootCmd = &cobra.Command{
	Use:   "geosan",
	Short: "geocode Swiss addresses for the GEOSAN database",
	Long: `
geosan turns free-text Swiss addresses into LV95 coordinates, matching them
against the federal building register, the locality directory and, as a
fallback, the geo.admin.ch search service.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v := config.New(configFile)

		for flag, key := range flagKeys {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				continue
			}

			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}

		c, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./geosan.yaml)")
	rootCmd.PersistentFlags().String("db-path", "geosan.duckdb", "DuckDB database file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// openDB opens the configured database, creating its directory.
func openDB() (*sql.DB, error) {
	if dir := filepath.Dir(cfg.DB.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// loadRegistry reads the registry snapshot stored in db.
func loadRegistry(db *sql.DB) (*registry.Registry, error) {
	repo := registry.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}

	reg, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	if reg.Len() == 0 {
		return nil, fmt.Errorf("registry in %s is empty - run 'registry import' or 'seed' first", cfg.DB.Path)
	}

	return reg, nil
}

// newCascade builds the cascade over reg from the configuration.
func newCascade(reg *registry.Registry, remote bool) *geocode.Cascade {
	opts := []geocode.Option{
		geocode.WithCutoff(cfg.Match.Cutoff),
		geocode.WithStopwords(normalizedStopwords(cfg.Match.Stopwords)),
	}

	if remote && cfg.Remote.Enabled {
		client := geoadmin.NewClient(
			geoadmin.WithBaseURL(cfg.Remote.URL),
			geoadmin.WithDelay(cfg.Remote.Delay),
			geoadmin.WithMaxRetries(cfg.Remote.MaxRetries),
			geoadmin.WithHTTPClient(httputils.NewClient(cfg.Remote.Timeout, geoadmin.UserAgent, cfg.Remote.TraceHTTP)),
		)
		zap.L().Debug("remote geocoder enabled", zap.Stringer("client", client))

		opts = append(opts, geocode.WithRemote(client))
	}

	return geocode.NewCascade(reg, opts...)
}

func normalizedStopwords(words []string) address.Stopwords {
	sw := make(address.Stopwords, 0, len(words))
	for _, w := range words {
		sw = append(sw, address.Normalize(w))
	}

	return sw
}
