// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosan/geosan/address"
	"github.com/geosan/geosan/registry"
)

func TestMatcherFind(t *testing.T) {
	m := NewMatcher(testRegistry(), address.DefaultStopwords)

	tests := []struct {
		name     string
		query    Query
		opts     MatchOptions
		wantEGID int64
		wantOK   bool
	}{
		{
			name:     "building exact",
			query:    Query{Street: "MAIN STREET", Number: "10", PostalCode: "1000"},
			opts:     MatchOptions{Level: LevelBuilding},
			wantEGID: 42,
			wantOK:   true,
		},
		{
			name:   "building wrong number",
			query:  Query{Street: "MAIN STREET", Number: "11", PostalCode: "1000"},
			opts:   MatchOptions{Level: LevelBuilding},
			wantOK: false,
		},
		{
			name:     "building by municipality",
			query:    Query{Street: "MAIN STREET", Number: "10", PostalCode: "1014", Municipality: "LAUSANNE"},
			opts:     MatchOptions{Level: LevelBuilding, Locality: ByMunicipality},
			wantEGID: 42,
			wantOK:   true,
		},
		{
			name:   "unknown postal code",
			query:  Query{Street: "MAIN STREET", Number: "10", PostalCode: "9999"},
			opts:   MatchOptions{Level: LevelBuilding},
			wantOK: false,
		},
		{
			name:     "street sorts numbers as text with blanks last",
			query:    Query{Street: "CHEMIN DE MONTELLY", PostalCode: "1007"},
			opts:     MatchOptions{Level: LevelStreet},
			wantEGID: 12,
			wantOK:   true,
		},
		{
			name:     "closest number",
			query:    Query{Street: "CHEMIN DE MONTELLY", Number: "12", PostalCode: "1007"},
			opts:     MatchOptions{Level: LevelStreet, ClosestNumber: true},
			wantEGID: 12,
			wantOK:   true,
		},
		{
			name:     "closest number tie keeps first",
			query:    Query{Street: "CHEMIN DE MONTELLY", Number: "7", PostalCode: "1007"},
			opts:     MatchOptions{Level: LevelStreet, ClosestNumber: true},
			wantEGID: 11,
			wantOK:   true,
		},
		{
			name:     "closest number with letter suffix",
			query:    Query{Street: "AVENUE DE MORGES", Number: "9", PostalCode: "1004"},
			opts:     MatchOptions{Level: LevelStreet, ClosestNumber: true},
			wantEGID: 21,
			wantOK:   true,
		},
		{
			name:     "closest number without digits in query",
			query:    Query{Street: "AVENUE DE MORGES", Number: "BIS", PostalCode: "1004"},
			opts:     MatchOptions{Level: LevelStreet, ClosestNumber: true},
			wantEGID: 20,
			wantOK:   true,
		},
		{
			name:     "fuzzy street",
			query:    Query{Street: "CHEMIN DE MONTELY", Number: "17", PostalCode: "1007"},
			opts:     MatchOptions{Level: LevelBuilding, Fuzzy: true, Cutoff: 0.9},
			wantEGID: 13,
			wantOK:   true,
		},
		{
			name:     "fuzzy street after stopword removal",
			query:    Query{Street: "RTE DE GENEVE", Number: "5", PostalCode: "1110"},
			opts:     MatchOptions{Level: LevelBuilding, Fuzzy: true, Cutoff: 0.95},
			wantEGID: 30,
			wantOK:   true,
		},
		{
			name:   "fuzzy below cutoff",
			query:  Query{Street: "MAIN ST", Number: "10", PostalCode: "1000"},
			opts:   MatchOptions{Level: LevelBuilding, Fuzzy: true, Cutoff: 0.8},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := m.Find(tc.query, tc.opts)
			assert.Equal(t, tc.wantOK, ok)

			if tc.wantOK {
				assert.Equal(t, tc.wantEGID, got.EGID)
			}
		})
	}
}

func TestMatcherFuzzyRespectsCutoff(t *testing.T) {
	m := NewMatcher(testRegistry(), nil)

	queries := []string{"MAIN ST", "MAIN STRET", "MAIN", "CHEMIN MONTELLY", "AVENUE MORGES", "AV DE MORGES"}

	for _, cutoff := range []float64{0.6, 0.7, 0.8, 0.9} {
		for _, s := range queries {
			q := Query{Street: s, PostalCode: "1000", Municipality: "LAUSANNE"}

			got, ok := m.Find(q, MatchOptions{Level: LevelStreet, Locality: ByMunicipality, Fuzzy: true, Cutoff: cutoff})
			if ok {
				assert.GreaterOrEqual(t, address.Similarity(got.Street, s), cutoff, "%q at %.1f", s, cutoff)
			}
		}
	}
}

func TestClosestNumberFromSet(t *testing.T) {
	rows := testRegistry().ByPostalCode("1007")[:3] // 4, 10, 17

	got, ok := closestNumber(rows, "12")
	assert.True(t, ok)
	assert.Equal(t, "10", got.Number)

	_, ok = closestNumber(nil, "12")
	assert.False(t, ok)
}

func TestClosestNumberIrregularNumbers(t *testing.T) {
	tests := []struct {
		name     string
		numbers  []string
		query    string
		wantEGID int64
	}{
		{name: "decimal", numbers: []string{"10.1", "30"}, query: "12", wantEGID: 1},
		{name: "range", numbers: []string{"30", "10-12"}, query: "12", wantEGID: 2},
		{name: "spaced letter", numbers: []string{"10 A", "30"}, query: "9", wantEGID: 1},
		{name: "zero padded", numbers: []string{"30", "010"}, query: "11", wantEGID: 2},
		{name: "bare number wins", numbers: []string{"10.1", "10"}, query: "12", wantEGID: 2},
		{name: "letter suffix wins", numbers: []string{"10.1", "10B"}, query: "12", wantEGID: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]registry.Address, len(tt.numbers))
			for i, n := range tt.numbers {
				rows[i] = addr(int64(i+1), "RUE DU LAC", n, "1800", "VEVEY", 2554000, 1145000)
			}

			got, ok := closestNumber(rows, tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.wantEGID, got.EGID)
		})
	}
}

func TestMatcherClosestNumberDecimal(t *testing.T) {
	reg := registry.New(
		[]registry.Address{
			addr(1, "RUE DU LAC", "10.1", "1800", "VEVEY", 2554000, 1145000),
			addr(2, "RUE DU LAC", "30", "1800", "VEVEY", 2554200, 1145200),
		},
		nil,
	)

	m := NewMatcher(reg, address.DefaultStopwords)

	got, ok := m.Find(Query{Street: "RUE DU LAC", Number: "12", PostalCode: "1800", Municipality: "VEVEY"},
		MatchOptions{Level: LevelStreet, Locality: ByPostalCode, ClosestNumber: true})
	require.True(t, ok)
	assert.Equal(t, int64(1), got.EGID)
}
