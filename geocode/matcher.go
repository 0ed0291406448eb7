// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"slices"
	"strconv"
	"strings"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/registry"
)

// DefaultCutoff is the minimum similarity of a fuzzy street match.
const DefaultCutoff = 0.9

// Level is the granularity of a registry match.
type Level int

const (
	// LevelBuilding requires the exact street number.
	LevelBuilding Level = iota
	// LevelStreet accepts any building of the street.
	LevelStreet
)

// LocalityMode selects which query field restricts the candidates.
type LocalityMode int

const (
	ByPostalCode LocalityMode = iota
	ByMunicipality
)

func (m LocalityMode) String() string {
	if m == ByMunicipality {
		return "municipality"
	}

	return "postal code"
}

// MatchOptions tunes one registry lookup.
type MatchOptions struct {
	Level    Level
	Locality LocalityMode
	// Fuzzy replaces the query street by the most similar registry street.
	Fuzzy  bool
	Cutoff float64
	// ClosestNumber picks the building whose number is numerically
	// closest to the query's. Only used at street level.
	ClosestNumber bool
}

// Matcher looks addresses up in the registry.
type Matcher struct {
	reg       *registry.Registry
	stopwords address.Stopwords
}

// NewMatcher creates a matcher over reg. The stopwords are stripped from
// both sides when a fuzzy lookup fails on the full street names.
func NewMatcher(reg *registry.Registry, stopwords address.Stopwords) *Matcher {
	return &Matcher{reg: reg, stopwords: stopwords}
}

// Find returns the registry row selected for q.
func (m *Matcher) Find(q Query, opts MatchOptions) (registry.Address, bool) {
	candidates := m.candidates(q, opts.Locality)
	if len(candidates) == 0 {
		return registry.Address{}, false
	}

	street := q.Street

	if opts.Fuzzy {
		var ok bool
		if street, ok = m.fuzzyStreet(q.Street, candidates, opts.Cutoff); !ok {
			return registry.Address{}, false
		}
	}

	var onStreet []registry.Address

	for _, a := range candidates {
		if a.Street == street {
			onStreet = append(onStreet, a)
		}
	}

	switch {
	case opts.Level == LevelBuilding:
		for _, a := range onStreet {
			if a.Number == q.Number {
				return a, true
			}
		}

		return registry.Address{}, false
	case opts.ClosestNumber:
		return closestNumber(onStreet, q.Number)
	default:
		return firstByNumber(onStreet)
	}
}

func (m *Matcher) candidates(q Query, mode LocalityMode) []registry.Address {
	if mode == ByMunicipality {
		return m.reg.ByMunicipality(q.Municipality)
	}

	return m.reg.ByPostalCode(q.PostalCode)
}

func (m *Matcher) fuzzyStreet(street string, candidates []registry.Address, cutoff float64) (string, bool) {
	names := streetNames(candidates)

	if best, ok := address.ClosestMatch(street, names, cutoff); ok {
		return best, true
	}

	stripped := make([]string, len(names))
	for i, n := range names {
		stripped[i] = m.stopwords.Strip(n)
	}

	best, ok := address.ClosestMatch(m.stopwords.Strip(street), stripped, cutoff)
	if !ok {
		return "", false
	}

	// map back to the first registry name with that stripped form
	return names[slices.Index(stripped, best)], true
}

// streetNames returns the distinct street names in registry order.
func streetNames(rows []registry.Address) []string {
	seen := make(map[string]bool)

	var names []string

	for _, a := range rows {
		if !seen[a.Street] {
			seen[a.Street] = true
			names = append(names, a.Street)
		}
	}

	return names
}

// firstByNumber returns the row with the smallest number string, rows
// without a number last.
func firstByNumber(rows []registry.Address) (registry.Address, bool) {
	if len(rows) == 0 {
		return registry.Address{}, false
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, compareNumbers)

	return sorted[0], true
}

func compareNumbers(a, b registry.Address) int {
	switch {
	case a.Number == b.Number:
		return 0
	case a.Number == "":
		return 1
	case b.Number == "":
		return -1
	default:
		return strings.Compare(a.Number, b.Number)
	}
}

// closestNumber picks the row whose leading number is closest to the
// query's, preferring the bare number over lettered variants.
func closestNumber(rows []registry.Address, number string) (registry.Address, bool) {
	var numbered []registry.Address

	for _, a := range rows {
		if a.Number != "" {
			numbered = append(numbered, a)
		}
	}

	if len(numbered) == 0 {
		return registry.Address{}, false
	}

	target, ok := address.LeadingNumber(number)
	if !ok {
		return numbered[0], true
	}

	closest, bestDist := -1, -1

	for _, a := range numbered {
		n, ok := address.LeadingNumber(a.Number)
		if !ok {
			continue
		}

		d := n - target
		if d < 0 {
			d = -d
		}

		if bestDist < 0 || d < bestDist {
			closest, bestDist = n, d
		}
	}

	if closest < 0 {
		return numbered[0], true
	}

	want := strconv.Itoa(closest)

	for _, a := range numbered {
		if a.Number == want {
			return a, true
		}
	}

	var lettered []registry.Address

	for _, a := range numbered {
		if rest, ok := strings.CutPrefix(a.Number, want); ok && startsWithLetter(rest) {
			lettered = append(lettered, a)
		}
	}

	if len(lettered) > 0 {
		return firstByNumber(lettered)
	}

	// "10.1", "10-12", "010" and the like
	for _, a := range numbered {
		if n, ok := address.LeadingNumber(a.Number); ok && n == closest {
			return a, true
		}
	}

	return registry.Address{}, false
}

func startsWithLetter(s string) bool {
	if s == "" {
		return false
	}

	c := s[0]

	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
