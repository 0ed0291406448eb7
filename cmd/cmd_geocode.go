// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/store"
	"github.com/geosan/geosan/utils/fmtutils"
)

var geocodeOptions struct {
	input    string
	geojson  string
	postgis  bool
	noRemote bool
	chunk    int
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode a CSV file of addresses",
	Long: `Reads addresses from a CSV file with either an address column or strname
and deinr columns, plus npa and ville, and geocodes them against the
imported registry. Results are stored in the database and summarized per
provenance.

$ geosan geocode --input patients.csv --geojson patients.geojson`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg, err := loadRegistry(db)
		if err != nil {
			return err
		}

		queries, err := store.ReadQueries(db, geocodeOptions.input)
		if err != nil {
			return fmt.Errorf("reading queries: %w", err)
		}

		zap.L().Info("geocoding", zap.Int("queries", len(queries)), zap.Int("concurrency", cfg.Batch.Concurrency))

		batch := geocode.NewBatch(newCascade(reg, !geocodeOptions.noRemote), cfg.Batch.Concurrency)

		repo := store.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating results schema: %w", err)
		}

		var results []store.Record

		report, runErr := batch.RunChunks(ctx, queries, geocodeOptions.chunk, func(records []geocode.Record) error {
			chunk := store.FromBatch(records)
			if err := repo.SaveResults(chunk); err != nil {
				return fmt.Errorf("saving results: %w", err)
			}

			results = append(results, chunk...)

			return nil
		})
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("geocoding: %w", runErr)
		}

		report.Log()
		printReport(report)

		if geocodeOptions.geojson != "" {
			if err := writeGeoJSONFile(geocodeOptions.geojson, results); err != nil {
				return err
			}
		}

		if geocodeOptions.postgis {
			// the import must finish even when the batch was interrupted
			if err := importPostGIS(context.WithoutCancel(ctx), results, false); err != nil {
				return err
			}
		}

		if runErr != nil {
			return fmt.Errorf("geocoding interrupted, %d records left unprocessed: %w", report.Unprocessed, runErr)
		}

		return nil
	},
}

func printReport(r *geocode.Report) {
	fmt.Printf("%-40s %10s %8s\n", "Provenance", "Count", "%")

	for _, p := range geocode.Provenances {
		n := r.Counts[p]
		if n == 0 {
			continue
		}

		fmt.Printf("%-40s %10s %7.2f%%\n", p, fmtutils.FormatInt(int64(n)), r.Percent(p))
	}

	fmt.Printf("%-40s %10s\n", "Total", fmtutils.FormatInt(int64(r.Total)))

	if r.Errors > 0 {
		fmt.Printf("%-40s %10s\n", "With errors", fmtutils.FormatInt(int64(r.Errors)))
	}

	if r.Unprocessed > 0 {
		fmt.Printf("%-40s %10s\n", "Unprocessed", fmtutils.FormatInt(int64(r.Unprocessed)))
	}
}

func writeGeoJSONFile(path string, results []store.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := store.WriteGeoJSON(f, results); err != nil {
		_ = f.Close()

		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	fmt.Printf("Wrote %s\n", path)

	return nil
}

func importPostGIS(ctx context.Context, results []store.Record, replace bool) error {
	if cfg.PostGIS.DSN == "" {
		return fmt.Errorf("postgis.dsn is not set")
	}

	pool, err := pgxpool.New(ctx, cfg.PostGIS.DSN)
	if err != nil {
		return fmt.Errorf("connecting to postgis: %w", err)
	}
	defer pool.Close()

	importer := &store.PostGISImporter{Pool: pool}

	n, err := importer.Import(ctx, cfg.PostGIS.Schema, cfg.PostGIS.Table, results, replace)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %s results into %s.%s\n", fmtutils.FormatInt(n), cfg.PostGIS.Schema, cfg.PostGIS.Table)

	return nil
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().StringVar(&geocodeOptions.input, "input", "", "CSV file of addresses to geocode")
	geocodeCmd.Flags().StringVar(&geocodeOptions.geojson, "geojson", "", "Also write the results to this GeoJSON file")
	geocodeCmd.Flags().BoolVar(&geocodeOptions.postgis, "postgis", false, "Also import the results into PostGIS")
	geocodeCmd.Flags().BoolVar(&geocodeOptions.noRemote, "no-remote", false, "Skip the geo.admin.ch search step")
	geocodeCmd.Flags().IntVar(&geocodeOptions.chunk, "chunk", 0, "Save results every this many addresses (0 saves once at the end)")
	geocodeCmd.Flags().Int("concurrency", runtime.NumCPU(), "Parallel geocoding workers")
	_ = geocodeCmd.MarkFlagRequired("input")
}
