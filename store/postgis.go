// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/geosan/geosan/spatial"
)

// Pool is the subset of pgxpool.Pool used by the importer.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostGISImporter copies geocoding results into a PostGIS table.
type PostGISImporter struct {
	Pool Pool
}

var postgisColumns = []string{
	"record_id", "egid", "provenance", "confidence", "reli", "geom",
}

// EncodePoint returns the EWKB of an LV95 point.
func EncodePoint(p spatial.Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.E, p.N}).SetSRID(spatial.SRID)

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("encoding point %s: %w", p, err)
	}

	return data, nil
}

func postgisRows(records []Record) ([][]any, error) {
	rows := make([][]any, 0, len(records))

	for _, rec := range records {
		if rec.Point == nil {
			continue
		}

		data, err := EncodePoint(*rec.Point)
		if err != nil {
			return nil, err
		}

		rows = append(rows, []any{
			rec.RecordID, nullable(rec.EGID), rec.Provenance, rec.Confidence,
			rec.Point.RELI(), data,
		})
	}

	return rows, nil
}

// Import writes the resolved records into schema.table inside one
// transaction, creating the table when needed. With replace the table is
// emptied first.
func (i *PostGISImporter) Import(ctx context.Context, schema, table string, records []Record, replace bool) (int64, error) {
	rows, err := postgisRows(records)
	if err != nil {
		return 0, err
	}

	ident := pgx.Identifier{schema, table}
	name := ident.Sanitize()

	tx, err := i.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgis: begin: %w", err)
	}

	fail := func(err error) (int64, error) {
		_ = tx.Rollback(ctx)

		return 0, err
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		record_id TEXT,
		egid BIGINT,
		provenance TEXT NOT NULL,
		confidence TEXT NOT NULL,
		reli BIGINT,
		geom geometry(Point, %d)
	)`, name, spatial.SRID)
	if _, err = tx.Exec(ctx, create); err != nil {
		return fail(fmt.Errorf("postgis: create %s: %w", name, err))
	}

	if replace {
		if _, err = tx.Exec(ctx, "TRUNCATE "+name); err != nil {
			return fail(fmt.Errorf("postgis: truncate %s: %w", name, err))
		}
	}

	n, err := tx.CopyFrom(ctx, ident, postgisColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fail(fmt.Errorf("postgis: copy into %s: %w", name, err))
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (geom)",
		pgx.Identifier{table + "_geom_idx"}.Sanitize(), name)
	if _, err = tx.Exec(ctx, index); err != nil {
		return fail(fmt.Errorf("postgis: index %s: %w", name, err))
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgis: commit: %w", err)
	}

	zap.L().Info("results imported into postgis",
		zap.String("table", name),
		zap.Int64("rows", n),
		zap.Int("skipped", len(records)-len(rows)),
	)

	return n, nil
}
