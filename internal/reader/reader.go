// Package reader implements the chunked table reader: it opens a delimited
// source and yields bounded-size, ordered batches of rows as all-Text Tables.
//
// Design goals:
//
//   - Ordered fallback, not exceptions: candidate encodings × parse engines
//     are tried in a fixed order on open; the first combination that produces
//     a batch is committed for the remainder of the stream.
//   - Per-row malformed lines (wrong column count, unescaped quotes) are
//     skipped and counted, never abort the stream. Bare blank lines are
//     ignored outright: they carry no data and are neither yielded nor
//     counted as malformed.
//   - Memory stays bounded: at most one chunk is materialized at a time.
//   - The stream is restartable from scratch (Open again) but not resumable
//     mid-stream.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"scrub/internal/config"
	"scrub/internal/source"
	"scrub/internal/table"
)

// probeBytes is how much of the source is sampled for format detection and
// encoding acceptance checks.
const probeBytes = 64 * 1024

// Config controls a single reader instance.
type Config struct {
	// ChunkRows is the number of data rows per yielded Table. <=0 uses
	// config.DefaultChunkSize.
	ChunkRows int

	// Delimiter is the field separator. 0 means ','.
	Delimiter rune

	// Encoding forces one encoding ("utf-8", "utf-16-bom", "windows-1252");
	// empty tries the ordered candidate list.
	Encoding string

	// HasHeader indicates the first row is a header. When false, columns get
	// synthetic names col_0..col_{n-1}.
	HasHeader bool

	// HeaderMap maps original header text to canonical column names.
	HeaderMap map[string]string

	// Columns optionally restricts output to this subset of (canonical)
	// column names, preserving source order.
	Columns []string

	// RowBudget stops the stream after this many data rows (sampling mode).
	// 0 means read everything.
	RowBudget int
}

// IngestError is the fatal open failure: every encoding×engine combination
// failed to produce a first batch. Attempts lists the combinations tried.
type IngestError struct {
	Locator  string
	Attempts []string
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: no encoding/engine combination succeeded (tried %s): %v",
		e.Locator, strings.Join(e.Attempts, ", "), e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Reader yields ordered chunks from a committed encoding×engine combination.
type Reader struct {
	src source.Source
	cfg Config

	rc     io.ReadCloser
	eng    engine
	header  []string // canonical, post-subset
	keep    []int    // source column indexes kept (nil = all)
	width   int      // expected source row width (0 = unenforced)
	pending []string // stashed first row for headerless inputs

	first     *table.Table // batch produced during probing, returned by first Next
	firstErr  error        // deferred stream error observed during probing
	committed bool         // probing finished; the combination is locked in

	encoding string
	engName  string

	rows    int64 // data rows yielded
	skipped int64 // malformed rows dropped
	done    bool
}

// Open resolves the fallback order and commits the first working combination.
//
// Failure modes:
//   - source.ErrUnsupportedFormat when the leading bytes identify a binary
//     format (parquet, zip, gzip, ...); nothing is attempted.
//   - *IngestError when every combination fails to produce a first batch.
func Open(ctx context.Context, src source.Source, cfg Config) (*Reader, error) {
	if cfg.ChunkRows <= 0 {
		cfg.ChunkRows = config.DefaultChunkSize
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}

	head, err := peek(ctx, src, probeBytes)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", src.Locator(), err)
	}
	if err := source.CheckFormat(src.Locator(), head); err != nil {
		return nil, err
	}

	var attempts []string
	var lastErr error
	for _, enc := range encodingCandidates(cfg.Encoding) {
		if !enc.accepts(head) {
			attempts = append(attempts, enc.name+"/(rejected)")
			continue
		}
		for _, ef := range engineCandidates() {
			combo := enc.name + "/" + ef.name
			r, err := tryCombination(ctx, src, cfg, enc, ef)
			if err != nil {
				attempts = append(attempts, combo)
				lastErr = err
				continue
			}
			r.encoding = enc.name
			r.engName = ef.name
			r.committed = true
			return r, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no plausible encoding for sampled bytes")
	}
	return nil, &IngestError{Locator: src.Locator(), Attempts: attempts, Err: lastErr}
}

// tryCombination opens the source from scratch under one encoding×engine pair
// and attempts to read the header plus one full batch. Any fatal error tears
// the attempt down; a successful attempt returns a committed Reader with the
// probed batch buffered.
func tryCombination(
	ctx context.Context,
	src source.Source,
	cfg Config,
	enc encodingCandidate,
	ef engineFactory,
) (*Reader, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	eng := ef.open(enc.decode(rc), cfg.Delimiter)

	r := &Reader{src: src, cfg: cfg, rc: rc, eng: eng}
	if err := r.readHeader(); err != nil {
		rc.Close()
		return nil, err
	}

	batch, err := r.readChunk(ctx)
	if err != nil && err != io.EOF {
		rc.Close()
		return nil, err
	}
	r.first = batch
	if err == io.EOF {
		r.firstErr = io.EOF
	}
	return r, nil
}

// readHeader resolves the column names and the kept-column index set.
func (r *Reader) readHeader() error {
	var raw []string
	if r.cfg.HasHeader {
		row, err := r.eng.ReadRow()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		raw = stripHeaderBOM(row)
	} else {
		// Peek one row to learn the width, then treat it as data. The split
		// engine cannot un-read, so the row is stashed as a pending row.
		row, err := r.eng.ReadRow()
		if err != nil {
			return fmt.Errorf("read first row: %w", err)
		}
		r.pending = row
		raw = syntheticHeader(len(row))
	}
	r.width = len(raw)

	var names []string
	if r.cfg.HasHeader {
		names = resolveHeader(raw, r.cfg.HeaderMap)
	} else {
		names = raw
	}

	if len(r.cfg.Columns) == 0 {
		r.header = names
		return nil
	}
	want := make(map[string]struct{}, len(r.cfg.Columns))
	for _, c := range r.cfg.Columns {
		want[c] = struct{}{}
	}
	for i, n := range names {
		if _, ok := want[n]; ok {
			r.keep = append(r.keep, i)
			r.header = append(r.header, n)
		}
	}
	if len(r.keep) == 0 {
		return fmt.Errorf("column subset %v matches no source columns", r.cfg.Columns)
	}
	return nil
}

// readChunk reads up to ChunkRows data rows, skipping malformed ones, and
// packs them into an all-Text Table. Returns io.EOF alongside the final
// (possibly empty) chunk.
func (r *Reader) readChunk(ctx context.Context) (*table.Table, error) {
	rows := make([][]string, 0, min(r.cfg.ChunkRows, 1024))
	var streamErr error

	for len(rows) < r.cfg.ChunkRows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if r.cfg.RowBudget > 0 && r.rows+int64(len(rows)) >= int64(r.cfg.RowBudget) {
			streamErr = io.EOF
			break
		}

		row, err := r.nextRow()
		if err == io.EOF {
			streamErr = io.EOF
			break
		}
		if err != nil {
			if errors.Is(err, errMalformedRow) {
				r.skipped++
				continue
			}
			if errors.Is(err, errEngineUnsupported) && r.committed {
				// Re-probing mid-stream would break ordering, so after
				// commit an engine-unsupported line degrades to a per-row
				// skip. While probing it fails the attempt instead, letting
				// the next engine in the candidate list take the input.
				r.skipped++
				continue
			}
			return nil, err
		}
		if len(row) == 1 && row[0] == "" {
			// Bare blank line; a separator, not a malformed row.
			continue
		}
		if r.width > 0 && len(row) != r.width {
			r.skipped++
			continue
		}
		rows = append(rows, r.project(row))
	}

	t, err := table.NewFromRows(r.header, rows)
	if err != nil {
		return nil, err
	}
	r.rows += int64(t.NumRows())
	return t, streamErr
}

func (r *Reader) nextRow() ([]string, error) {
	row := r.pending
	if row == nil {
		var err error
		row, err = r.eng.ReadRow()
		if err != nil {
			return nil, err
		}
	}
	r.pending = nil
	for i, v := range row {
		row[i] = strings.TrimSpace(v)
	}
	return row, nil
}

// project narrows a source row to the kept column subset.
func (r *Reader) project(row []string) []string {
	if r.keep == nil {
		return row
	}
	out := make([]string, len(r.keep))
	for i, idx := range r.keep {
		out[i] = row[idx]
	}
	return out
}

// Next returns the next chunk in source order, or io.EOF when the stream is
// exhausted. Chunk boundaries carry no semantic meaning; callers must not
// assume any grouping beyond source order.
func (r *Reader) Next(ctx context.Context) (*table.Table, error) {
	if r.done {
		return nil, io.EOF
	}
	if r.first != nil {
		t := r.first
		r.first = nil
		if r.firstErr == io.EOF {
			r.done = true
		}
		if t.NumRows() == 0 && r.done {
			return nil, io.EOF
		}
		return t, nil
	}
	t, err := r.readChunk(ctx)
	if err == io.EOF {
		r.done = true
		if t != nil && t.NumRows() > 0 {
			return t, nil
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close releases the underlying stream.
func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

// Header returns the canonical column names (post-subset).
func (r *Reader) Header() []string { return r.header }

// Rows returns the count of data rows yielded so far.
func (r *Reader) Rows() int64 { return r.rows }

// Skipped returns the count of malformed rows dropped so far.
func (r *Reader) Skipped() int64 { return r.skipped }

// Encoding returns the committed encoding name.
func (r *Reader) Encoding() string { return r.encoding }

// Engine returns the committed engine name.
func (r *Reader) Engine() string { return r.engName }

// peek samples the leading bytes of a source, preferring the cheap Peeker
// path when the source provides one.
func peek(ctx context.Context, src source.Source, n int) ([]byte, error) {
	if p, ok := src.(source.Peeker); ok {
		return p.Peek(ctx, n)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
