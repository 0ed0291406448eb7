// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geosan/geosan/registry"
)

const (
	seedAddresses  = "cmd/testdata/addresses.tsv"
	seedLocalities = "cmd/testdata/localities.csv"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seeds the database with the registry sample in cmd/testdata",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return seedDatabase(cfg.DB.Path)
		},
	}
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func seedDatabase(dbPath string) error {
	// remove old db if it exists
	_ = os.Remove(dbPath)
	_ = os.Remove(dbPath + ".wal")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := registry.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	stats, err := repo.ImportAddressesCSV(seedAddresses)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", seedAddresses, err)
	}

	n, err := repo.ImportLocalitiesCSV(seedLocalities)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", seedLocalities, err)
	}

	fmt.Printf("Database seeded with %d addresses and %d localities.\n", stats.Imported, n)

	return nil
}
