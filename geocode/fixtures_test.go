// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"sync"

	"github.com/geosan/geosan/registry"
	"github.com/geosan/geosan/spatial"
)

func addr(egid int64, street, number, postalCode, municipality string, e, n float64) registry.Address {
	return registry.Address{
		EGID:         egid,
		Street:       street,
		Number:       number,
		PostalCode:   postalCode,
		Municipality: municipality,
		Point:        spatial.Point{E: e, N: n},
	}
}

func testRegistry() *registry.Registry {
	return registry.New(
		[]registry.Address{
			addr(42, "MAIN STREET", "10", "1000", "LAUSANNE", 2538000, 1152000),
			addr(43, "MAIN STREET", "12A", "1000", "LAUSANNE", 2538020, 1152010),
			addr(11, "CHEMIN DE MONTELLY", "4", "1007", "LAUSANNE", 2536040, 1151040),
			addr(12, "CHEMIN DE MONTELLY", "10", "1007", "LAUSANNE", 2536100, 1151100),
			addr(13, "CHEMIN DE MONTELLY", "17", "1007", "LAUSANNE", 2536170, 1151170),
			addr(14, "CHEMIN DE MONTELLY", "", "1007", "LAUSANNE", 2536200, 1151200),
			addr(20, "AVENUE DE MORGES", "9B", "1004", "LAUSANNE", 2536900, 1152900),
			addr(21, "AVENUE DE MORGES", "9A", "1004", "LAUSANNE", 2536890, 1152890),
			addr(22, "AVENUE DE MORGES", "15", "1004", "LAUSANNE", 2536950, 1152950),
			addr(30, "ROUTE DE GENEVE", "5", "1110", "MORGES", 2527300, 1151300),
		},
		[]registry.Locality{
			{Name: "LAUSANNE", PostalCode: "1000", Point: spatial.Point{E: 2538500, N: 1152500}},
			{Name: "LAUSANNE", PostalCode: "1007", Point: spatial.Point{E: 2536500, N: 1151500}},
			{Name: "LAUSANNE 25", PostalCode: "1000", Point: spatial.Point{E: 2540000, N: 1156000}},
			{Name: "LAUSANNE", PostalCode: "1014", Point: spatial.Point{E: 2538100, N: 1152100}},
			{Name: "MORGES", PostalCode: "1110", Point: spatial.Point{E: 2527500, N: 1151500}},
		},
	)
}

// fakeRemote answers every search with the same match or error.
type fakeRemote struct {
	mu      sync.Mutex
	match   *RemoteMatch
	err     error
	queries []string
	onCall  func()
}

func (f *fakeRemote) Search(_ context.Context, text string) (*RemoteMatch, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall()
	}

	return f.match, f.err
}
