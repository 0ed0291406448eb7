// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchQueries() []Query {
	return []Query{
		{ID: "a", Street: "MAIN STREET", Number: "10", PostalCode: "1000", Municipality: "LAUSANNE"},
		{ID: "b", PostalCode: "1007", Municipality: "LAUSANNE"},
		{ID: "c", Street: "CHEMIN DE MONTELLY", Number: "12", PostalCode: "1007", Municipality: "LAUSANNE"},
		{ID: "d", Street: "RUE DU GRAND-PONT", Number: "2", PostalCode: "9999", Municipality: "NOWHERE"},
	}
}

func TestBatchRun(t *testing.T) {
	c := NewCascade(testRegistry())
	queries := batchQueries()

	records, err := NewBatch(c, 3).Run(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, records, len(queries))

	for i, rec := range records {
		assert.True(t, rec.Done)
		assert.Equal(t, queries[i], rec.Query)
		assert.Equal(t, c.Geocode(context.Background(), queries[i]), rec.Result)
	}

	assert.Equal(t, BuildingMatch, records[0].Result.Provenance)
	assert.Equal(t, LocalityNoStreet, records[1].Result.Provenance)
	assert.Equal(t, StreetClosestNumber, records[2].Result.Provenance)
	assert.Equal(t, Unresolvable, records[3].Result.Provenance)
}

func TestBatchRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := NewBatch(NewCascade(testRegistry()), 2).Run(ctx, batchQueries())
	require.ErrorIs(t, err, context.Canceled)

	for _, rec := range records {
		assert.False(t, rec.Done)
		assert.Empty(t, rec.Result.Provenance)
	}
}

func TestBatchRunCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := &fakeRemote{err: errors.New("unavailable"), onCall: cancel}
	c := NewCascade(testRegistry(), WithRemote(remote))

	queries := []Query{
		{ID: "first", Street: "RTE DE GENEVE", Number: "5", PostalCode: "1110", Municipality: "MORGES"},
		{ID: "second", Street: "MAIN STREET", Number: "10", PostalCode: "1000", Municipality: "LAUSANNE"},
		{ID: "third", Street: "MAIN STREET", Number: "10", PostalCode: "1000", Municipality: "LAUSANNE"},
	}

	records, err := NewBatch(c, 1).Run(ctx, queries)
	require.ErrorIs(t, err, context.Canceled)

	// the record in flight is left for a later run
	for _, rec := range records {
		assert.False(t, rec.Done, rec.Query.ID)
	}

	report := NewReport(records)
	assert.Equal(t, 3, report.Unprocessed)
	assert.Zero(t, report.Errors)
	assert.Zero(t, report.Resolved())
}

func TestBatchRunCancelledDuringRemoteCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the transport gives up with the context's error, as an HTTP client would
	remote := &fakeRemote{err: context.Canceled, onCall: cancel}
	c := NewCascade(testRegistry(), WithRemote(remote))

	queries := []Query{
		{ID: "c", Street: "CHEMIN DE MONTELLY", Number: "12", PostalCode: "1007", Municipality: "LAUSANNE"},
	}

	records, err := NewBatch(c, 1).Run(ctx, queries)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 1)

	assert.False(t, records[0].Done)
	assert.Equal(t, Provenance(""), records[0].Result.Provenance)
	assert.Equal(t, 1, NewReport(records).Unprocessed)
}

func TestCascadeStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := &fakeRemote{err: errors.New("unavailable"), onCall: cancel}
	c := NewCascade(testRegistry(), WithRemote(remote))

	q := Query{Street: "CHEMIN DE MONTELLY", Number: "12", PostalCode: "1007", Municipality: "LAUSANNE"}

	res := c.Geocode(ctx, q)
	assert.Equal(t, Unresolvable, res.Provenance)
	assert.Nil(t, res.Point)
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.True(t, Interrupted(ctx, res))

	assert.False(t, Interrupted(context.Background(), c.Geocode(context.Background(), q)))
}

func TestBatchRunChunks(t *testing.T) {
	queries := batchQueries()

	tests := []struct {
		name      string
		size      int
		wantSizes []int
	}{
		{name: "even split", size: 2, wantSizes: []int{2, 2}},
		{name: "remainder", size: 3, wantSizes: []int{3, 1}},
		{name: "single chunk", size: 0, wantSizes: []int{4}},
		{name: "oversized", size: 10, wantSizes: []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int

			var ids []string

			report, err := NewBatch(NewCascade(testRegistry()), 2).Quiet().RunChunks(context.Background(), queries, tt.size,
				func(records []Record) error {
					sizes = append(sizes, len(records))
					for _, rec := range records {
						assert.True(t, rec.Done)
						ids = append(ids, rec.Query.ID)
					}

					return nil
				})
			require.NoError(t, err)

			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
			assert.Equal(t, 4, report.Total)
			assert.Equal(t, 3, report.Resolved())
			assert.Equal(t, 1, report.Counts[Unresolvable])
			assert.Zero(t, report.Unprocessed)
		})
	}
}

func TestBatchRunChunksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := &fakeRemote{err: context.Canceled, onCall: cancel}
	c := NewCascade(testRegistry(), WithRemote(remote))

	queries := []Query{
		{ID: "first", Street: "RTE DE GENEVE", Number: "5", PostalCode: "1110", Municipality: "MORGES"},
		{ID: "second", Street: "MAIN STREET", Number: "10", PostalCode: "1000", Municipality: "LAUSANNE"},
		{ID: "third", Street: "MAIN STREET", Number: "10", PostalCode: "1000", Municipality: "LAUSANNE"},
	}

	chunks := 0

	report, err := NewBatch(c, 1).Quiet().RunChunks(ctx, queries, 1, func(records []Record) error {
		chunks++

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, chunks)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Unprocessed)
	assert.Zero(t, report.Resolved())
}

func TestBatchRunChunksSinkError(t *testing.T) {
	errSink := errors.New("disk full")
	chunks := 0

	report, err := NewBatch(NewCascade(testRegistry()), 1).Quiet().RunChunks(context.Background(), batchQueries(), 1,
		func([]Record) error {
			chunks++

			return errSink
		})
	require.ErrorIs(t, err, errSink)

	assert.Equal(t, 1, chunks)
	assert.Equal(t, 1, report.Total)
}

func TestReport(t *testing.T) {
	records, err := NewBatch(NewCascade(testRegistry()), 2).Run(context.Background(), batchQueries())
	require.NoError(t, err)

	r := NewReport(records)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Resolved())
	assert.Equal(t, 1, r.Counts[BuildingMatch])
	assert.InDelta(t, 25.0, r.Percent(Unresolvable), 1e-9)
	assert.Zero(t, r.Errors)
	assert.Zero(t, r.Unprocessed)

	r.Merge(&Report{Total: 2, Counts: map[Provenance]int{BuildingMatch: 1, Unresolvable: 1}, Errors: 1})
	assert.Equal(t, 6, r.Total)
	assert.Equal(t, 2, r.Counts[BuildingMatch])
	assert.InDelta(t, 100.0/3, r.Percent(Unresolvable), 1e-9)
	assert.Equal(t, 1, r.Errors)

	r.Merge(nil)
	assert.Equal(t, 6, r.Total)

	r.Log()
}
