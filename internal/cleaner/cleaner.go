// Package cleaner orchestrates a full cleaning run over one delimited source.
//
// Design goals:
//
//   - Streaming ingest with a bounded working table. Chunks arrive in source
//     order; stages that need a cross-row view (imputation, dedup) operate on
//     at most Runtime.MaxRowsSampled rows, and exceeding that bound is
//     reported rather than fatal. The statistical profile streams over every
//     chunk read, so it covers the full source regardless of the cap.
//   - Every mutation is counted in the Report. The pipeline never changes a
//     cell silently and never aborts a run over individual bad rows.
//   - Stage order is fixed: ingest, header resolution, coercion,
//     winsorization, profiling, imputation, dedup, report, sink. Each stage
//     is independently toggleable through config.CleanConfig.
package cleaner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"scrub/internal/coerce"
	"scrub/internal/config"
	"scrub/internal/impute"
	"scrub/internal/metadata"
	"scrub/internal/metrics"
	"scrub/internal/outlier"
	"scrub/internal/reader"
	"scrub/internal/sink"
	"scrub/internal/source"
	"scrub/internal/stats"
	"scrub/internal/table"
)

// Run executes the cleaning pipeline described by cfg and returns the report
// together with the cleaned bounded working table. The table is what sinks
// received; callers that configured no sink can persist it themselves.
func Run(ctx context.Context, cfg config.Config) (*Report, *table.Table, error) {
	r := &run{
		cfg:   cfg,
		clean: cfg.Clean.Normalize(),
		heur:  config.DefaultHeuristics(),
		report: &Report{
			RunID:     uuid.NewString(),
			Job:       cfg.Job,
			Locator:   cfg.Source.Locator,
			StartedAt: time.Now().UTC(),
		},
	}

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"ingest", r.ingest},
		{"coerce", r.coerce},
		{"winsorize", r.winsorize},
		{"profile", r.profile},
		{"impute", r.impute},
		{"dedup", r.dedup},
		{"sink", r.sink},
	}
	for _, s := range stages {
		if err := r.stage(ctx, s.name, s.fn); err != nil {
			return nil, nil, err
		}
	}

	r.report.fillSchema(r.working)
	r.report.FinishedAt = time.Now().UTC()

	metrics.RecordRows(cfg.Job, "read", r.report.RowsRead)
	metrics.RecordRows(cfg.Job, "skipped", r.report.RowsSkipped)
	metrics.RecordRows(cfg.Job, "out", int64(r.report.RowsOut))

	return r.report, r.working, nil
}

type run struct {
	cfg    config.Config
	clean  config.ResolvedClean
	heur   config.Heuristics
	report *Report

	working   *table.Table
	statsDone chan statsResult
}

// statsResult carries the streaming profile's outcome from the ingest-time
// goroutine to the profile stage.
type statsResult struct {
	finals map[string]stats.Final
	err    error
}

// stage runs one pipeline stage with metrics instrumentation.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(r.cfg.Job, name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("cleaner: %s: %w", name, err)
	}
	return nil
}

// ingest opens the source, commits an encoding and engine, resolves the
// header (metadata rows included), and assembles the bounded working table.
func (r *run) ingest(ctx context.Context) error {
	src, err := source.Resolve(r.cfg.Source.Locator)
	if err != nil {
		return err
	}

	opts := r.cfg.Source.Options
	rd, err := reader.Open(ctx, src, reader.Config{
		ChunkRows: r.cfg.Runtime.EffectiveChunkSize(),
		Delimiter: opts.Rune("delimiter", ','),
		Encoding:  opts.String("encoding", ""),
		HasHeader: r.clean.ForceHeader != config.HeaderSkip,
		HeaderMap: opts.StringMap("header_map"),
		Columns:   opts.StringSlice("columns"),
		RowBudget: r.cfg.Runtime.SampleRowBudget,
	})
	if err != nil {
		return err
	}
	defer rd.Close()

	header := rd.Header()
	r.report.ColsIn = len(header)
	r.working, err = table.NewFromRows(header, nil)
	if err != nil {
		return err
	}

	// Statistics stream over every chunk read, not just the rows kept in the
	// bounded working table, so the profile covers the whole source even
	// when the working-set cap truncates the cross-row stages.
	statsIn := make(chan *table.Table, 1)
	r.statsDone = make(chan statsResult, 1)
	go func() {
		finals, err := stats.Profile(ctx, statsIn, nil, r.cfg.Runtime.Workers, r.heur)
		r.statsDone <- statsResult{finals: finals, err: err}
	}()
	defer close(statsIn)

	capRows := r.cfg.Runtime.EffectiveWorkingSetCap()
	first := true
	for {
		chunk, err := rd.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		rows := textRows(chunk)
		stream := chunk
		if first {
			first = false
			if r.clean.ForceHeader == config.HeaderAuto {
				det := metadata.Detect(header, rows, r.heur)
				r.report.MetadataRows = det.MetadataRows
				if det.ShouldRename {
					r.report.SuggestedHeaders = det.SuggestedHeaders
					r.report.Warnings = append(r.report.Warnings,
						"metadata rows suggest richer column names; header kept as declared")
				}
				rows = rows[det.DataStart:]
				if det.DataStart > 0 {
					stream, err = table.NewFromRows(header, rows)
					if err != nil {
						return err
					}
				}
			}
		}

		select {
		case statsIn <- stream:
		case <-ctx.Done():
			return ctx.Err()
		}

		room := capRows - r.working.NumRows()
		if room <= 0 {
			// Keep draining so RowsRead reflects the whole source.
			r.report.WorkingSetTruncated = true
			continue
		}
		if len(rows) > room {
			rows = rows[:room]
			r.report.WorkingSetTruncated = true
		}
		if err := r.working.AppendRows(rows); err != nil {
			return err
		}
	}

	r.report.RowsRead = rd.Rows()
	r.report.RowsSkipped = rd.Skipped()
	r.report.Encoding = rd.Encoding()
	r.report.Engine = rd.Engine()
	return nil
}

func (r *run) coerce(context.Context) error {
	r.report.Coercion = coerce.Apply(r.working, r.heur, coerce.Options{
		InferDatetime: r.clean.DatetimeInfer,
		DateColumns:   r.cfg.Source.Options.StringSlice("date_columns"),
	})
	return nil
}

func (r *run) winsorize(context.Context) error {
	if !r.clean.CapOutliers {
		return nil
	}
	caps := outlier.Cap(r.working, r.heur)
	if len(caps) > 0 {
		r.report.OutlierCaps = caps
	}
	return nil
}

// profile collects the streaming aggregates started during ingest. The
// accumulators saw every chunk as it was read, so the stats describe all rows
// in the source, including the ones the working-set cap kept out of the
// cross-row stages, and reflect observed values before imputation fills gaps.
func (r *run) profile(ctx context.Context) error {
	select {
	case res := <-r.statsDone:
		if res.err != nil {
			return res.err
		}
		if len(res.finals) > 0 {
			r.report.Stats = res.finals
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *run) impute(context.Context) error {
	if !r.clean.ImputeMissing {
		return nil
	}
	decisions := impute.Apply(r.working, r.heur)
	r.report.Imputation = decisions
	for _, d := range decisions {
		if d.Warning != "" {
			r.report.Warnings = append(r.report.Warnings,
				fmt.Sprintf("%s: %s", d.Column, d.Warning))
		}
	}
	return nil
}

func (r *run) dedup(context.Context) error {
	if r.clean.DropEmptyColumns {
		r.report.EmptyColumnsDropped = dropEmptyColumns(r.working)
		r.report.DuplicateColumnsDropped = dropDuplicateColumns(r.working)
	}
	if r.clean.DropDuplicateRows {
		r.report.DuplicateRowsDropped = dropDuplicateRows(r.working)
	}
	return nil
}

func (r *run) sink(ctx context.Context) error {
	if r.cfg.Sink.Kind == "" {
		return nil
	}
	s, err := sink.New(ctx, r.cfg.Sink)
	if err != nil {
		return err
	}
	if err := s.Write(ctx, r.working); err != nil {
		_ = s.Close(ctx)
		return err
	}
	return s.Close(ctx)
}

// textRows flattens an all-Text chunk back to raw string rows.
func textRows(t *table.Table) [][]string {
	n := t.NumRows()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, t.NumCols())
		for j := range t.Cols {
			if s, ok := t.Cols[j].Values[i].(string); ok {
				row[j] = s
			}
		}
		rows[i] = row
	}
	return rows
}
