// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/geosan/geosan/server"
	"github.com/geosan/geosan/store"
)

var serveNoRemote bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the geocoder over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg, err := loadRegistry(db)
		if err != nil {
			return err
		}

		results := store.NewRepository(db)
		if err := results.CreateSchema(); err != nil {
			return fmt.Errorf("creating results schema: %w", err)
		}

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		fmt.Printf("Geocoder listening on http://%s\n", cfg.Server.Listen)

		return server.NewServer(newCascade(reg, !serveNoRemote), results, cfg.Batch.Concurrency).Run(cfg.Server.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "localhost:8080", "Address to listen on")
	serveCmd.Flags().Int("concurrency", runtime.NumCPU(), "Parallel geocoding workers per batch request")
	serveCmd.Flags().BoolVar(&serveNoRemote, "no-remote", false, "Skip the geo.admin.ch search step")
}
