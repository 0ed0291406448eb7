// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geosan/geosan/institutions"
	"github.com/geosan/geosan/store"
)

var institutionsCmd = &cobra.Command{
	Use:   "institutions",
	Short: "Recognise medico-social institutions among addresses",
}

var institutionsOptions struct {
	directory string
	input     string
}

var institutionsMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Tell which addresses of a CSV file belong to an institution",
	Long: `Reads the same CSV format as 'geocode' and prints, for every address, the
institution found at that address, or else the institution whose name
best matches the street field, with a note on how it was found and the
institution's coordinates.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		dir, err := institutions.Load(db, institutionsOptions.directory)
		if err != nil {
			return fmt.Errorf("loading institutions: %w", err)
		}

		queries, err := store.ReadQueries(db, institutionsOptions.input)
		if err != nil {
			return fmt.Errorf("reading queries: %w", err)
		}

		matched := 0

		fmt.Println("id\tinstitution\tnote\te\tn")

		for _, q := range queries {
			hit, err := dir.Recognise(q.Street, q.Number, q.PostalCode, q.Municipality)
			if err != nil {
				if hit.Name != "" {
					zap.L().Warn("institution found but not located", zap.String("id", q.ID), zap.Error(err))
				}

				fmt.Printf("%s\t%s\t%s\t\t\n", q.ID, hit.Name, hit.Note)

				continue
			}

			matched++

			fmt.Printf("%s\t%s\t%s\t%.1f\t%.1f\n", q.ID, hit.Name, hit.Note, hit.Point.E, hit.Point.N)
		}

		fmt.Printf("# %d of %d addresses matched among %d institutions\n", matched, len(queries), dir.Len())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(institutionsCmd)
	institutionsCmd.AddCommand(institutionsMatchCmd)

	institutionsMatchCmd.Flags().StringVar(&institutionsOptions.directory, "directory", "", "Institution directory CSV")
	institutionsMatchCmd.Flags().StringVar(&institutionsOptions.input, "input", "", "CSV file of addresses")
	_ = institutionsMatchCmd.MarkFlagRequired("directory")
	_ = institutionsMatchCmd.MarkFlagRequired("input")
}
