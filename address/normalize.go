// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

// Package address provides the string handling shared by the geocoder:
// canonical comparison keys, street/number splitting and fuzzy lookup.
package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison key for a street or municipality name:
// accents removed, non-ASCII runes dropped, upper-cased and trimmed.
func Normalize(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		),
		s,
	)

	return strings.ToUpper(strings.TrimSpace(s))
}

// DefaultStopwords are the road-type tokens the registry spells
// inconsistently.
var DefaultStopwords = Stopwords{"CHEMIN", "RUE", "AVENUE", "ROUTE", "RUELLE", "CH.", "AV.", "RTE"}

// Stopwords is a set of generic tokens removed before fuzzy comparison.
type Stopwords []string

// Strip removes every whitespace-separated token of s that is a stopword.
func (sw Stopwords) Strip(s string) string {
	words := strings.Fields(s)
	kept := words[:0]

	for _, w := range words {
		if !sw.contains(w) {
			kept = append(kept, w)
		}
	}

	return strings.Join(kept, " ")
}

func (sw Stopwords) contains(w string) bool {
	for _, s := range sw {
		if s == w {
			return true
		}
	}

	return false
}
