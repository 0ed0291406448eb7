// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geosan/geosan/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored geocoding results",
}

var exportProvenance string

func storedResults() ([]store.Record, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	repo := store.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return nil, fmt.Errorf("creating results schema: %w", err)
	}

	var provenance *string
	if exportProvenance != "" {
		provenance = &exportProvenance
	}

	rows, err := repo.ListResults(provenance, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	records := make([]store.Record, len(rows))
	for i, r := range rows {
		records[i] = *r
	}

	return records, nil
}

var exportGeoJSONCmd = &cobra.Command{
	Use:   "geojson <file>",
	Short: "Write the stored results as a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		records, err := storedResults()
		if err != nil {
			return err
		}

		return writeGeoJSONFile(args[0], records)
	},
}

var exportPostGISReplace bool

var exportPostGISCmd = &cobra.Command{
	Use:   "postgis",
	Short: "Copy the stored results into the PostGIS warehouse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := storedResults()
		if err != nil {
			return err
		}

		return importPostGIS(cmd.Context(), records, exportPostGISReplace)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportGeoJSONCmd)
	exportCmd.AddCommand(exportPostGISCmd)

	exportCmd.PersistentFlags().StringVar(&exportProvenance, "provenance", "", "Only export results with this provenance")
	exportPostGISCmd.Flags().BoolVar(&exportPostGISReplace, "replace", false, "Empty the target table first")
}
