// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/spatial"
)

type localityKey struct {
	name       string
	postalCode string
}

// LocalityResolver finds the centroid of a postal locality. When several
// centroids qualify the first one in table order wins.
type LocalityResolver struct {
	byKey        map[localityKey]spatial.Point
	byPostalCode map[string]spatial.Point
}

// NewLocalityResolver indexes the centroid table.
func NewLocalityResolver(localities []registry.Locality) *LocalityResolver {
	r := &LocalityResolver{
		byKey:        make(map[localityKey]spatial.Point, len(localities)),
		byPostalCode: make(map[string]spatial.Point),
	}

	for _, l := range localities {
		k := localityKey{name: l.Name, postalCode: l.PostalCode}
		if _, ok := r.byKey[k]; !ok {
			r.byKey[k] = l.Point
		}

		if _, ok := r.byPostalCode[l.PostalCode]; !ok {
			r.byPostalCode[l.PostalCode] = l.Point
		}
	}

	return r
}

// Resolve matches the municipality and postal code, then the postal code
// alone.
func (r *LocalityResolver) Resolve(municipality, postalCode string) (spatial.Point, bool) {
	if p, ok := r.byKey[localityKey{name: municipality, postalCode: postalCode}]; ok {
		return p, true
	}

	p, ok := r.byPostalCode[postalCode]

	return p, ok
}
