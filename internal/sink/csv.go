package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"scrub/internal/coerce"
	"scrub/internal/config"
	"scrub/internal/table"
)

// csvSink writes the cleaned table to a local CSV file using the same
// canonical cell renderings the coercion pipeline compares against, so a
// file written here and cleaned again reports zero changes.
type csvSink struct {
	path  string
	delim rune
	f     *os.File
	w     *csv.Writer
}

func newCSVSink(opts config.Options) (*csvSink, error) {
	path := opts.String("path", "")
	if path == "" {
		return nil, fmt.Errorf("sink: csv: path must not be empty")
	}
	return &csvSink{path: path, delim: opts.Rune("delimiter", ',')}, nil
}

func (s *csvSink) Write(ctx context.Context, t *table.Table) error {
	if s.f == nil {
		f, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("sink: csv: create: %w", err)
		}
		s.f = f
		s.w = csv.NewWriter(f)
		s.w.Comma = s.delim
		if err := s.w.Write(t.Names()); err != nil {
			return fmt.Errorf("sink: csv: header: %w", err)
		}
	}

	n := t.NumRows()
	record := make([]string, t.NumCols())
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j, col := range t.Cols {
			record[j] = RenderCell(col.Values[i])
		}
		if err := s.w.Write(record); err != nil {
			return fmt.Errorf("sink: csv: row %d: %w", i, err)
		}
	}
	return nil
}

func (s *csvSink) Close(context.Context) error {
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return fmt.Errorf("sink: csv: flush: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sink: csv: close: %w", closeErr)
	}
	return nil
}

// RenderCell converts a typed cell to its canonical text form. NULL renders
// as the empty string.
func RenderCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return coerce.Render(x)
	case time.Time:
		return coerce.RenderTime(x)
	default:
		return fmt.Sprint(x)
	}
}
