// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"go.uber.org/zap"

	"github.com/geosan/geosan/utils/fmtutils"
)

// Report aggregates the outcome of a batch.
type Report struct {
	Total       int
	Counts      map[Provenance]int
	Errors      int
	Unprocessed int
}

// NewReport counts the records of a batch.
func NewReport(records []Record) *Report {
	r := &Report{Counts: make(map[Provenance]int)}

	for _, rec := range records {
		r.Total++

		if !rec.Done {
			r.Unprocessed++

			continue
		}

		r.Counts[rec.Result.Provenance]++

		if rec.Result.Err != nil {
			r.Errors++
		}
	}

	return r
}

// Merge adds the counts of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}

	if r.Counts == nil {
		r.Counts = make(map[Provenance]int)
	}

	r.Total += other.Total
	r.Errors += other.Errors
	r.Unprocessed += other.Unprocessed

	for p, n := range other.Counts {
		r.Counts[p] += n
	}
}

// Percent returns the share of records with provenance p, rounded to two
// decimals.
func (r *Report) Percent(p Provenance) float64 {
	return fmtutils.Percent(r.Counts[p], r.Total)
}

// Resolved counts the records that got coordinates.
func (r *Report) Resolved() int {
	n := 0

	for p, c := range r.Counts {
		if p != Unresolvable {
			n += c
		}
	}

	return n
}

// Log writes one line per provenance seen, then the error and
// unprocessed counts.
func (r *Report) Log() {
	for _, p := range Provenances {
		n := r.Counts[p]
		if n == 0 {
			continue
		}

		zap.L().Info("geocoding outcome",
			zap.String("provenance", string(p)),
			zap.Int("count", n),
			zap.Float64("percent", r.Percent(p)))
	}

	zap.L().Info("geocoding summary",
		zap.Int("total", r.Total),
		zap.Int("resolved", r.Resolved()),
		zap.Int("errors", r.Errors),
		zap.Int("unprocessed", r.Unprocessed))
}
