// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists geocoding results in DuckDB and exports them as
// GeoJSON or into a PostGIS warehouse.
package store

import (
	"time"

	"github.com/geosan/geosan/geocode"
	"github.com/geosan/geosan/spatial"
)

// Record is one stored geocoding result.
type Record struct {
	RecordID     string         `json:"record_id"`
	Street       string         `json:"street"`
	Number       string         `json:"number"`
	PostalCode   string         `json:"postal_code"`
	Municipality string         `json:"municipality"`
	Point        *spatial.Point `json:"point"`
	EGID         int64          `json:"egid,omitempty"`
	Provenance   string         `json:"provenance"`
	Confidence   string         `json:"confidence"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	RELI         int64          `json:"reli,omitempty"`
	H3           [8]int64       `json:"-"`
}

// FromBatch converts the processed records of a batch.
func FromBatch(records []geocode.Record) []Record {
	out := make([]Record, 0, len(records))

	for _, rec := range records {
		if !rec.Done {
			continue
		}

		r := Record{
			RecordID:     rec.Query.ID,
			Street:       rec.Query.Street,
			Number:       rec.Query.Number,
			PostalCode:   rec.Query.PostalCode,
			Municipality: rec.Query.Municipality,
			Point:        rec.Result.Point,
			EGID:         rec.Result.EGID,
			Provenance:   string(rec.Result.Provenance),
			Confidence:   string(rec.Result.Confidence()),
		}

		if rec.Result.Err != nil {
			r.Error = rec.Result.Err.Error()
		}

		out = append(out, r)
	}

	return out
}

// computeCells fills the hectare and H3 cells from the point.
func (r *Record) computeCells() error {
	if r.Point == nil {
		r.RELI, r.H3 = 0, [8]int64{}

		return nil
	}

	cells, err := r.Point.H3Cells()
	if err != nil {
		return err
	}

	r.RELI, r.H3 = r.Point.RELI(), cells

	return nil
}
