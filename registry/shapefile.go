// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/spatial"
)

// ReadLocalitiesShapefile reads locality centroids from an LV95 shapefile.
// Points are taken as they are, polygons are reduced to their area centroid.
// Records are returned in file order.
func ReadLocalitiesShapefile(path, nameField, postalField string) ([]Locality, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening shapefile %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	postalIdx := fieldIndex(reader, postalField)

	if nameIdx < 0 || postalIdx < 0 {
		return nil, fmt.Errorf("shapefile %s: fields %q and %q are required", path, nameField, postalField)
	}

	var (
		localities []Locality
		skipped    int
	)

	for reader.Next() {
		_, shape := reader.Shape()

		p, ok := shapeCentroid(shape)
		if !ok {
			skipped++

			continue
		}

		localities = append(localities, Locality{
			Name:       address.Normalize(attribute(reader, nameIdx)),
			PostalCode: attribute(reader, postalIdx),
			Point:      p,
		})
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records without usable geometry",
			zap.String("path", path), zap.Int("skipped", skipped))
	}

	return localities, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}

	return -1
}

func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

func shapeCentroid(shape shp.Shape) (spatial.Point, bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return spatial.Point{E: s.X, N: s.Y}, true
	case *shp.Polygon:
		mp := toMultiPolygon(s)
		if mp == nil {
			return spatial.Point{}, false
		}

		c, err := xy.Centroid(mp)
		if err != nil {
			return spatial.Point{}, false
		}

		return spatial.Point{E: c.X(), N: c.Y()}, true
	default:
		return spatial.Point{}, false
	}
}

// toMultiPolygon groups shapefile rings into polygons: clockwise rings
// open a new polygon, counter-clockwise rings are holes of the last one.
func toMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(spatial.SRID)

	var current *geom.Polygon

	flush := func() {
		if current != nil {
			if err := mp.Push(current); err != nil {
				zap.L().Debug("skipping malformed polygon", zap.Error(err))
			}
		}
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]

		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) <= 0 || current == nil {
			flush()

			current = geom.NewPolygon(geom.XY)
		}

		if err := current.Push(ring); err != nil {
			zap.L().Debug("skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}

	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}

	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64

	n := len(flat) / 2
	for i := range n {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}

	return sum / 2
}
