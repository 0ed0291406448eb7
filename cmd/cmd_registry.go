// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/utils/fmtutils"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the reference addresses and locality centroids",
}

var registryImportOptions struct {
	addresses string
	centroids string
}

var registryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a GWR address export and a locality directory",
	Long: `Imports the building register export (CSV or TSV with EGID, STRNAME,
DEINR, DPLZ4, GDENAME, GKODE and GKODN) and the locality centroids, either
the swisstopo PLZO CSV or a point or polygon shapefile.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		addresses := firstNonEmpty(registryImportOptions.addresses, cfg.Registry.Addresses)
		centroids := firstNonEmpty(registryImportOptions.centroids, cfg.Registry.Centroids)

		if addresses == "" && centroids == "" {
			return fmt.Errorf("nothing to import: set --addresses or --centroids")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := registry.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating registry schema: %w", err)
		}

		if addresses != "" {
			stats, err := repo.ImportAddressesCSV(addresses)
			if err != nil {
				return fmt.Errorf("importing addresses: %w", err)
			}

			fmt.Printf("Imported %s of %s addresses (%s without street, %s rejected)\n",
				fmtutils.FormatInt(int64(stats.Imported)),
				fmtutils.FormatInt(int64(stats.Read)),
				fmtutils.FormatInt(int64(stats.MissingStreet)),
				fmtutils.FormatInt(int64(stats.Rejected)))
		}

		if centroids != "" {
			n, err := importCentroids(repo, centroids)
			if err != nil {
				return fmt.Errorf("importing centroids: %w", err)
			}

			fmt.Printf("Imported %s locality centroids\n", fmtutils.FormatInt(int64(n)))
		}

		return nil
	},
}

func importCentroids(repo registry.Repository, path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return repo.ImportLocalitiesCSV(path)
	}

	localities, err := registry.ReadLocalitiesShapefile(path,
		cfg.Registry.CentroidsNameField, cfg.Registry.CentroidsPostal)
	if err != nil {
		return 0, err
	}

	return len(localities), repo.SaveLocalities(localities)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

var registryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the size of the stored reference data",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo := registry.NewRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating registry schema: %w", err)
		}

		s, err := repo.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("%-16s %12s\n", "Addresses", fmtutils.FormatInt(int64(s.Addresses)))
		fmt.Printf("%-16s %12s\n", "Buildings", fmtutils.FormatInt(int64(s.Buildings)))
		fmt.Printf("%-16s %12s\n", "Postal codes", fmtutils.FormatInt(int64(s.PostalCodes)))
		fmt.Printf("%-16s %12s\n", "Municipalities", fmtutils.FormatInt(int64(s.Municipalities)))
		fmt.Printf("%-16s %12s\n", "Localities", fmtutils.FormatInt(int64(s.Localities)))

		return nil
	},
}

var registryBuildingCmd = &cobra.Command{
	Use:   "building <egid>",
	Short: "Print the registry entry of a building",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		egid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid egid %q: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg, err := loadRegistry(db)
		if err != nil {
			return err
		}

		a, err := reg.Building(egid)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(a)
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryImportCmd)
	registryCmd.AddCommand(registryStatsCmd)
	registryCmd.AddCommand(registryBuildingCmd)

	registryImportCmd.Flags().StringVar(
		&registryImportOptions.addresses,
		"addresses",
		"",
		"GWR address export (default registry.addresses)",
	)
	registryImportCmd.Flags().StringVar(
		&registryImportOptions.centroids,
		"centroids",
		"",
		"Locality centroids, CSV or shapefile (default registry.centroids)",
	)
}
