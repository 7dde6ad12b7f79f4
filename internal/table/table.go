// Package table defines the columnar in-memory representation shared by all
// cleaning stages: an ordered set of named, typed, nullable columns of equal
// length.
//
// Design goals:
//
//   - Columns are the unit of work; stages operate column-at-a-time.
//   - Cells are `any` with nil meaning NULL; non-nil cells hold string, bool,
//     float64, or time.Time depending on the column Kind.
//   - A Table is never mutated across stage boundaries. Stages either build a
//     new Table or receive one via Clone and own it outright.
package table

import "fmt"

// Kind classifies a column's coerced value type.
type Kind int

const (
	// Text is the default kind; cells are string.
	Text Kind = iota
	// Boolean cells are bool.
	Boolean
	// Numeric cells are float64.
	Numeric
	// Datetime cells are time.Time.
	Datetime
)

// String returns the lowercase name used in reports and configs.
func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Numeric:
		return "numeric"
	case Datetime:
		return "datetime"
	default:
		return "text"
	}
}

// Column is a named, typed sequence of nullable cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []any // nil = NULL
}

// Table is an ordered sequence of equal-length columns. Column names are
// unique once the header is resolved; callers constructing tables by hand are
// responsible for that invariant (NewFromRows enforces it).
type Table struct {
	Cols []Column
}

// NumRows returns the row count (0 for an empty table).
func (t *Table) NumRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return len(t.Cols[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Cols))
	for i, c := range t.Cols {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns a pointer to the named column, or nil.
func (t *Table) Column(name string) *Column {
	if i := t.ColumnIndex(name); i >= 0 {
		return &t.Cols[i]
	}
	return nil
}

// Row materializes row i as a slice aligned with column order. The slice is
// freshly allocated; mutating it does not touch the table.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Cols))
	for j := range t.Cols {
		row[j] = t.Cols[j].Values[i]
	}
	return row
}

// Clone returns a deep copy. Stages that mutate cells in place (outlier
// capping, imputation) clone first so the input table stays intact for the
// caller.
func (t *Table) Clone() *Table {
	out := &Table{Cols: make([]Column, len(t.Cols))}
	for i, c := range t.Cols {
		vals := make([]any, len(c.Values))
		copy(vals, c.Values)
		out.Cols[i] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return out
}

// NewFromRows builds an all-Text table from a header and raw string rows.
// Rows narrower than the header are padded with NULLs; wider rows are
// truncated. Empty cells stay as empty strings here; null-token normalization
// is a coercion concern, not a construction concern.
func NewFromRows(header []string, rows [][]string) (*Table, error) {
	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
	}

	t := &Table{Cols: make([]Column, len(header))}
	for i, name := range header {
		vals := make([]any, len(rows))
		for r, row := range rows {
			if i < len(row) {
				vals[r] = row[i]
			}
		}
		t.Cols[i] = Column{Name: name, Kind: Text, Values: vals}
	}
	return t, nil
}

// AppendRows appends raw string rows to an all-Text table in place. It is
// used while assembling the bounded working set from the chunk stream, before
// any coercion has run.
func (t *Table) AppendRows(rows [][]string) error {
	for i := range t.Cols {
		if t.Cols[i].Kind != Text {
			return fmt.Errorf("append to coerced column %q", t.Cols[i].Name)
		}
		for _, row := range rows {
			var v any
			if i < len(row) {
				v = row[i]
			}
			t.Cols[i].Values = append(t.Cols[i].Values, v)
		}
	}
	return nil
}

// DropColumn removes the named column, preserving the order of the rest.
func (t *Table) DropColumn(name string) bool {
	i := t.ColumnIndex(name)
	if i < 0 {
		return false
	}
	t.Cols = append(t.Cols[:i], t.Cols[i+1:]...)
	return true
}
