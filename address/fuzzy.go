// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity is the SequenceMatcher ratio between a candidate and a word,
// in [0, 1].
func Similarity(candidate, word string) float64 {
	return newMatcher(candidate, word).Ratio()
}

// ClosestMatch returns the candidate most similar to word whose similarity
// is at least cutoff. Ties keep the first candidate in the given order.
func ClosestMatch(word string, candidates []string, cutoff float64) (string, bool) {
	var (
		best      string
		bestScore = -1.0
		found     bool
	)

	w := chars(word)
	m := difflib.NewMatcher(nil, w)

	for _, c := range candidates {
		m.SetSeq1(chars(c))

		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}

		score := m.Ratio()
		if score >= cutoff && score > bestScore {
			best, bestScore, found = c, score, true
		}
	}

	return best, found
}

func newMatcher(a, b string) *difflib.SequenceMatcher {
	return difflib.NewMatcher(chars(a), chars(b))
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}

	return out
}
