// Package sink persists cleaned tables.
//
// Design goals:
//
//   - One narrow interface (Sink) so the orchestrator does not care whether
//     rows end up in a file or a database.
//   - A factory keyed by config.SinkConfig.Kind, mirroring how sources are
//     resolved from a locator.
//   - Typed cells cross the boundary as native Go values (string, bool,
//     float64, time.Time, nil for NULL); each sink decides its own rendering.
package sink

import (
	"context"
	"fmt"

	"scrub/internal/config"
	"scrub/internal/table"
)

// Sink receives the cleaned table and persists it.
type Sink interface {
	// Write persists the table. Implementations may batch internally.
	Write(ctx context.Context, t *table.Table) error

	// Close releases resources. Write must not be called after Close.
	Close(ctx context.Context) error
}

// New builds the sink selected by cfg.Kind. An empty kind is a configuration
// error here; the orchestrator skips sink construction entirely when no
// persistence was requested.
func New(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	switch cfg.Kind {
	case "csv":
		return newCSVSink(cfg.Options)
	case "sqlite":
		return newSQLiteSink(ctx, cfg.Options)
	case "postgres":
		return newPostgresSink(ctx, cfg.Options)
	default:
		return nil, fmt.Errorf("sink: unknown kind %q", cfg.Kind)
	}
}

// defaultBatchSize bounds memory used by the database sinks per round-trip.
const defaultBatchSize = 5000

// batchRows walks t in batches of at most size rows and hands each batch to
// fn as native values. It stops at the first error.
func batchRows(ctx context.Context, t *table.Table, size int, fn func(rows [][]any) error) error {
	if size <= 0 {
		size = defaultBatchSize
	}
	n := t.NumRows()
	batch := make([][]any, 0, size)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, t.Row(i))
		if len(batch) >= size {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
