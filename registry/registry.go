// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the reference data of the geocoder: the federal
// building and dwelling register (GWR) addresses and the locality
// centroids, loaded once and shared read-only.
package registry

import (
	"errors"
	"fmt"

	"github.com/geosan/geosan/spatial"
)

// ErrBuildingNotFound is returned when an EGID has no registry row.
var ErrBuildingNotFound = errors.New("building not found in registry")

// Address is one entrance of the building register.
type Address struct {
	EGID         int64         `json:"egid"`
	Street       string        `json:"street"`
	Number       string        `json:"number"`
	PostalCode   string        `json:"postal_code"`
	Municipality string        `json:"municipality"`
	Point        spatial.Point `json:"point"`
}

// Locality is the centroid of a postal locality.
type Locality struct {
	Name       string        `json:"name"`
	PostalCode string        `json:"postal_code"`
	Point      spatial.Point `json:"point"`
}

// Registry is an immutable snapshot of the reference data. Rows keep
// their load order, which is the tie-break order of every lookup.
type Registry struct {
	addresses      []Address
	localities     []Locality
	byPostalCode   map[string][]int
	byMunicipality map[string][]int
	byEGID         map[int64]int
}

// New indexes the given rows. The slices are owned by the registry
// afterwards.
func New(addresses []Address, localities []Locality) *Registry {
	r := &Registry{
		addresses:      addresses,
		localities:     localities,
		byPostalCode:   make(map[string][]int),
		byMunicipality: make(map[string][]int),
		byEGID:         make(map[int64]int, len(addresses)),
	}

	for i, a := range addresses {
		r.byPostalCode[a.PostalCode] = append(r.byPostalCode[a.PostalCode], i)
		r.byMunicipality[a.Municipality] = append(r.byMunicipality[a.Municipality], i)

		if _, ok := r.byEGID[a.EGID]; !ok {
			r.byEGID[a.EGID] = i
		}
	}

	return r
}

// Len returns the number of addresses.
func (r *Registry) Len() int {
	return len(r.addresses)
}

// Building returns the first row registered for egid.
func (r *Registry) Building(egid int64) (Address, error) {
	i, ok := r.byEGID[egid]
	if !ok {
		return Address{}, fmt.Errorf("egid %d: %w", egid, ErrBuildingNotFound)
	}

	return r.addresses[i], nil
}

// ByPostalCode returns the rows of a postal code in load order.
func (r *Registry) ByPostalCode(postalCode string) []Address {
	return r.collect(r.byPostalCode[postalCode])
}

// ByMunicipality returns the rows of a municipality in load order.
func (r *Registry) ByMunicipality(municipality string) []Address {
	return r.collect(r.byMunicipality[municipality])
}

// Localities returns the centroid table in load order.
func (r *Registry) Localities() []Locality {
	return r.localities
}

func (r *Registry) collect(idx []int) []Address {
	if len(idx) == 0 {
		return nil
	}

	out := make([]Address, len(idx))
	for i, j := range idx {
		out[i] = r.addresses[j]
	}

	return out
}
