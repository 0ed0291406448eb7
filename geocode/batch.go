// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geosan/geosan/metrics"
)

// Record pairs a query with its result. Done is false when the batch was
// cancelled before the record was processed.
type Record struct {
	Query  Query
	Result Result
	Done   bool
}

// Batch geocodes many queries concurrently.
type Batch struct {
	cascade     *Cascade
	concurrency int
	progress    bool
}

// NewBatch creates a batch runner. A concurrency below one means one
// worker per CPU.
func NewBatch(c *Cascade, concurrency int) *Batch {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}

	return &Batch{
		cascade:     c,
		concurrency: concurrency,
		progress:    isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// Quiet disables the progress bar.
func (b *Batch) Quiet() *Batch {
	b.progress = false

	return b
}

// Run geocodes queries and returns one record per query, in input order.
// One record never aborts the batch. When ctx is cancelled the records
// not yet started, and those cut short, are returned unprocessed along
// with ctx's error.
func (b *Batch) Run(ctx context.Context, queries []Query) ([]Record, error) {
	records := make([]Record, len(queries))
	for i, q := range queries {
		records[i].Query = q
	}

	var bar *progressbar.ProgressBar
	if b.progress {
		bar = progressbar.NewOptions(len(queries),
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i := range records {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			rec := &records[i]

			res := b.cascade.Geocode(gctx, rec.Query)
			if Interrupted(gctx, res) {
				return nil
			}

			rec.Result, rec.Done = res, true

			metrics.ResultsTotal.WithLabelValues(string(rec.Result.Provenance)).Inc()

			if rec.Result.Err != nil {
				metrics.RecordErrorsTotal.Inc()
			}

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return records, err
	}

	if err := ctx.Err(); err != nil {
		zap.L().Warn("geocoding batch cancelled", zap.Error(err))

		return records, err
	}

	return records, nil
}

// RunChunks geocodes queries size at a time and hands every chunk to sink
// once it is done, so that long inputs can be persisted as they go. A size
// below one runs a single chunk. The returned report covers all queries;
// after a cancellation the chunks never started count as unprocessed and
// are not passed to sink.
func (b *Batch) RunChunks(ctx context.Context, queries []Query, size int, sink func([]Record) error) (*Report, error) {
	if size < 1 || size > len(queries) {
		size = max(len(queries), 1)
	}

	total := NewReport(nil)

	for start := 0; start < len(queries); start += size {
		chunk := queries[start:min(start+size, len(queries))]

		records, runErr := b.Run(ctx, chunk)
		total.Merge(NewReport(records))

		if err := sink(records); err != nil {
			return total, err
		}

		if runErr != nil {
			total.Merge(&Report{Total: len(queries) - start - len(chunk), Unprocessed: len(queries) - start - len(chunk)})

			return total, runErr
		}

		zap.L().Debug("geocoded chunk", zap.Int("from", start), zap.Int("records", len(chunk)))
	}

	return total, nil
}
