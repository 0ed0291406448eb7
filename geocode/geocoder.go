// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode turns Swiss postal addresses into LV95 coordinates by
// walking a cascade of registry lookups, a remote search and locality
// centroids. Every result carries the label of the step that produced it.
package geocode

import (
	"context"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/spatial"
)

// Provenance names the step that produced a result.
type Provenance string

const (
	LocalityOnly             Provenance = "locality centroid only"
	LocalityNoStreet         Provenance = "locality centroid, no street"
	LocalityNoNumber         Provenance = "locality centroid, no number"
	LocalityFallback         Provenance = "locality centroid, fallback"
	StreetMatch              Provenance = "street match"
	StreetMatchFuzzy         Provenance = "street match (fuzzy)"
	BuildingMatch            Provenance = "building match"
	BuildingMatchRemote      Provenance = "building match (fuzzy, remote)"
	BuildingMatchLocal       Provenance = "building match (fuzzy, local)"
	StreetClosestNumber      Provenance = "street match, closest number"
	StreetClosestNumberFuzzy Provenance = "street match, closest number (fuzzy)"
	Unresolvable             Provenance = "unresolvable"
)

// Provenances lists every label, most precise first.
var Provenances = []Provenance{
	BuildingMatch,
	BuildingMatchRemote,
	BuildingMatchLocal,
	StreetClosestNumber,
	StreetClosestNumberFuzzy,
	StreetMatch,
	StreetMatchFuzzy,
	LocalityOnly,
	LocalityNoStreet,
	LocalityNoNumber,
	LocalityFallback,
	Unresolvable,
}

// Confidence is the precision tier implied by a provenance.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Confidence returns high for buildings, medium for streets, low for
// locality centroids and none otherwise.
func (p Provenance) Confidence() Confidence {
	switch p {
	case BuildingMatch, BuildingMatchRemote, BuildingMatchLocal:
		return ConfidenceHigh
	case StreetMatch, StreetMatchFuzzy, StreetClosestNumber, StreetClosestNumberFuzzy:
		return ConfidenceMedium
	case LocalityOnly, LocalityNoStreet, LocalityNoNumber, LocalityFallback:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Query is one address to geocode. Street and Municipality are expected
// in normalized form, an empty Number means the address has none.
type Query struct {
	ID           string `json:"id,omitempty"`
	Street       string `json:"street"`
	Number       string `json:"number,omitempty"`
	PostalCode   string `json:"postal_code"`
	Municipality string `json:"municipality"`
}

// NewQuery normalizes the free-text parts of an address.
func NewQuery(id, street, number, postalCode, municipality string) Query {
	return Query{
		ID:           id,
		Street:       address.Normalize(street),
		Number:       address.Normalize(number),
		PostalCode:   address.Normalize(postalCode),
		Municipality: address.Normalize(municipality),
	}
}

// ParseQuery splits a one-line street address into street and number.
func ParseQuery(id, line, postalCode, municipality string) Query {
	street, number := address.Split(address.Normalize(line))

	return NewQuery(id, street, number, postalCode, municipality)
}

// Result is the outcome of one geocoding attempt. A building or street
// result carries the registry EGID and point, a locality result only a
// point, an unresolvable result neither.
type Result struct {
	Point      *spatial.Point `json:"point"`
	EGID       int64          `json:"egid,omitempty"`
	Provenance Provenance     `json:"provenance"`

	// Err holds non-fatal failures met on the way, such as a remote
	// outage, even when a later step resolved the address.
	Err error `json:"-"`
}

// Confidence returns the tier of the result's provenance.
func (r Result) Confidence() Confidence {
	return r.Provenance.Confidence()
}

// Resolved reports whether the result has coordinates.
func (r Result) Resolved() bool {
	return r.Point != nil
}

func addressResult(a registry.Address, p Provenance) Result {
	pt := a.Point

	return Result{Point: &pt, EGID: a.EGID, Provenance: p}
}

// RemoteMatch is the single best hit of a remote search.
type RemoteMatch struct {
	EGID  int64
	Point spatial.Point
	Label string
}

// RemoteGeocoder searches a free-text address in an external service. It
// returns nil without error when the service has no result.
type RemoteGeocoder interface {
	Search(ctx context.Context, text string) (*RemoteMatch, error)
}
