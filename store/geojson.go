// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection builds a collection of WGS84 points. Records without
// a point are skipped.
func FeatureCollection(records []Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, rec := range records {
		if rec.Point == nil {
			continue
		}

		ll := rec.Point.ToWGS84()

		f := geojson.NewFeature(orb.Point{ll.Lng, ll.Lat})
		f.Properties["record_id"] = rec.RecordID
		f.Properties["e"] = rec.Point.E
		f.Properties["n"] = rec.Point.N
		f.Properties["provenance"] = rec.Provenance
		f.Properties["confidence"] = rec.Confidence
		f.Properties["reli"] = rec.Point.RELI()

		if rec.EGID != 0 {
			f.Properties["egid"] = rec.EGID
		}

		fc.Append(f)
	}

	return fc
}

// WriteGeoJSON writes records as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(FeatureCollection(records))
}
