package stats

import (
	"context"

	"golang.org/x/sync/errgroup"

	"scrub/internal/config"
	"scrub/internal/table"
)

// Profile drains chunks from in and returns the finalized per-column
// statistics.
//
// With workers <= 1 chunks are folded sequentially in arrival order. With
// more workers, each worker owns a private Accumulator (no shared mutable
// state, no locking during per-chunk computation) and the partial aggregates
// are combined by a single reducer — correctness does not depend on
// completion order because the merge is associative and commutative.
//
// The first chunk always seeds column inference on the reducer before any
// worker runs, so every partial aggregate covers the same column set.
func Profile(
	ctx context.Context,
	in <-chan *table.Table,
	columns []string,
	workers int,
	h config.Heuristics,
) (map[string]Final, error) {
	root := NewAccumulator(columns, h)

	if workers <= 1 {
		for {
			select {
			case <-ctx.Done():
				return root.Finalize(), ctx.Err()
			case t, ok := <-in:
				if !ok {
					return root.Finalize(), nil
				}
				root.Consume(t)
			}
		}
	}

	// Seed column inference from the first chunk so workers agree on the
	// profiled set.
	first, ok := <-in
	if !ok {
		return root.Finalize(), nil
	}
	root.Consume(first)

	partials := make(chan *Accumulator, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := NewAccumulator(root.Columns(), h)
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case t, ok := <-in:
					if !ok {
						partials <- local
						return nil
					}
					local.Consume(t)
				}
			}
		})
	}

	err := g.Wait()
	close(partials)
	for p := range partials {
		root.MergeFrom(p)
	}
	// Partial aggregates are valid statistics for the rows seen so far, so a
	// canceled run still finalizes cleanly.
	return root.Finalize(), err
}
