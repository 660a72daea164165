// Package batcher groups a stream of ingested records into ordered,
// non-overlapping chunks and fans work out across them with bounded
// parallelism (spec.md §5 Ordering guarantees, §4.L orchestrator
// concurrency).
package batcher

import (
	"context"

	"github.com/shugein/ceg/internal/models"
	"golang.org/x/sync/errgroup"
)

// Chunk is a contiguous, ordered slice of records drawn from a single
// source's fetch stream. Index is the chunk's position within the batch,
// used to preserve commit ordering when chunks are processed concurrently.
type Chunk struct {
	Index   int
	Records []models.Record
}

// Chunks reads from in until it closes or ctx is cancelled, grouping
// records into chunks of at most size records each, in arrival order.
// The final chunk may be shorter than size.
func Chunks(ctx context.Context, in <-chan models.Record, size int) ([]Chunk, error) {
	if size < 1 {
		size = 1
	}

	var chunks []Chunk
	var current []models.Record

	for {
		select {
		case <-ctx.Done():
			return chunks, ctx.Err()
		case r, ok := <-in:
			if !ok {
				if len(current) > 0 {
					chunks = append(chunks, Chunk{Index: len(chunks), Records: current})
				}
				return chunks, nil
			}
			current = append(current, r)
			if len(current) == size {
				chunks = append(chunks, Chunk{Index: len(chunks), Records: current})
				current = nil
			}
		}
	}
}

// ChunkResult is the outcome of processing a single chunk.
type ChunkResult struct {
	Index int
	Value any
	Err   error
}

// Dispatch runs fn over every chunk with at most maxConcurrency chunks
// in flight at once, returning results ordered by chunk Index regardless
// of completion order. A single chunk's failure does not cancel its
// siblings — each result carries its own error so the caller can decide
// per-chunk whether to retry, skip, or abort the whole batch.
func Dispatch(ctx context.Context, chunks []Chunk, maxConcurrency int, fn func(ctx context.Context, c Chunk) (any, error)) []ChunkResult {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	results := make([]ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			val, err := fn(gctx, c)
			results[i] = ChunkResult{Index: c.Index, Value: val, Err: err}
			return nil // per-chunk errors are carried in results, not propagated
		})
	}
	_ = g.Wait()
	return results
}
