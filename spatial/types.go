// Copyright 2025 The GEOSAN Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

// SRID of the Swiss LV95 projected reference frame.
const SRID = 2056

// Point is a position in LV95 (EPSG:2056), in meters.
type Point struct {
	E float64 `json:"e"`
	N float64 `json:"n"`
}

// LatLng is a WGS84 position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%.2f %.2f)", p.E, p.N)
}

// Distance returns the planar distance to other in meters.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(other.E-p.E, other.N-p.N)
}

// ToWGS84 converts with the swisstopo approximate formulas, accurate to
// about one meter within Switzerland.
func (p Point) ToWGS84() LatLng {
	y := (p.E - 2600000) / 1e6
	x := (p.N - 1200000) / 1e6

	lng := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y
	lat := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	return LatLng{Lat: lat * 100 / 36, Lng: lng * 100 / 36}
}

// RELI returns the identifier of the 100 m hectare cell containing the
// point: hectometer easting and northing in LV03, four digits each.
func (p Point) RELI() int64 {
	e := int64(math.Floor((p.E - 2000000) / 100))
	n := int64(math.Floor((p.N - 1000000) / 100))

	return e*10000 + n
}

// H3Cells returns the H3 cells containing the point for resolutions 1 to 8.
func (p Point) H3Cells() ([8]int64, error) {
	var cells [8]int64

	ll := p.ToWGS84()
	latLng := h3.NewLatLng(ll.Lat, ll.Lng)

	for res := 1; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return cells, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		cells[res-1] = int64(cell)
	}

	return cells, nil
}
