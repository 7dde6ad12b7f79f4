package cleaner

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"scrub/internal/table"
)

/*
Unit tests for row and column deduplication.

We cover:
  - exact duplicate rows dropped with first-occurrence kept, across mixed
    cell kinds including time.Time
  - NULL vs empty string staying distinct
  - cell byte encoding field boundaries (no "ab"+"" vs "a"+"b" confusion)
  - all-NULL column removal
  - duplicate-column removal keeping the leftmost copy
*/

// TestDropDuplicateRows exercises mixed-kind duplicate rows, keeping the
// first occurrence.
func TestDropDuplicateRows(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tbl := &table.Table{Cols: []table.Column{
		{Name: "id", Kind: table.Text, Values: []any{"a", "b", "a", "c"}},
		{Name: "amt", Kind: table.Numeric, Values: []any{1.5, 2.0, 1.5, nil}},
		{Name: "ok", Kind: table.Boolean, Values: []any{true, false, true, nil}},
		{Name: "day", Kind: table.Datetime, Values: []any{ts, ts, ts, nil}},
	}}

	dropped := dropDuplicateRows(tbl)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if got := tbl.NumRows(); got != 3 {
		t.Fatalf("NumRows = %d, want 3", got)
	}
	if got, want := tbl.Column("id").Values, []any{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("id column = %v, want %v", got, want)
	}
}

// TestDropDuplicateRows_NullVsEmpty verifies that a NULL cell and an empty
// string cell do not make two rows equal.
func TestDropDuplicateRows_NullVsEmpty(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Cols: []table.Column{
		{Name: "a", Kind: table.Text, Values: []any{nil, ""}},
	}}
	if dropped := dropDuplicateRows(tbl); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}

// TestDropDuplicateRows_FieldBoundaries verifies the separator in the hash
// encoding: rows ("ab","") and ("a","b") must stay distinct.
func TestDropDuplicateRows_FieldBoundaries(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Cols: []table.Column{
		{Name: "x", Kind: table.Text, Values: []any{"ab", "a"}},
		{Name: "y", Kind: table.Text, Values: []any{"", "b"}},
	}}
	if dropped := dropDuplicateRows(tbl); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}

// TestCellBytes_Kinds spot-checks the canonical byte forms.
func TestCellBytes_Kinds(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		v    any
		want []byte
	}{
		{nil, []byte{0x00, 0x1f}},
		{"hi", []byte{'h', 'i', 0x1f}},
		{true, []byte{'t', 0x1f}},
		{false, []byte{'f', 0x1f}},
		{1200.0, append([]byte("1200"), 0x1f)},
		{ts, append([]byte("2024-03-01"), 0x1f)},
	}
	for _, c := range cases {
		if got := cellBytes(nil, c.v); !bytes.Equal(got, c.want) {
			t.Errorf("cellBytes(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

// TestDropEmptyColumns verifies that only all-NULL columns are removed.
func TestDropEmptyColumns(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Cols: []table.Column{
		{Name: "keep", Kind: table.Text, Values: []any{nil, "x"}},
		{Name: "gone", Kind: table.Numeric, Values: []any{nil, nil}},
	}}

	dropped := dropEmptyColumns(tbl)
	if want := []string{"gone"}; !reflect.DeepEqual(dropped, want) {
		t.Fatalf("dropped = %v, want %v", dropped, want)
	}
	if got, want := tbl.Names(), []string{"keep"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}

// TestDropDuplicateColumns verifies identical columns collapse to the
// leftmost, and near-identical columns survive.
func TestDropDuplicateColumns(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Cols: []table.Column{
		{Name: "a", Kind: table.Numeric, Values: []any{1.0, 2.0, nil}},
		{Name: "b", Kind: table.Numeric, Values: []any{1.0, 2.0, nil}},
		{Name: "c", Kind: table.Numeric, Values: []any{1.0, 2.0, 3.0}},
	}}

	dropped := dropDuplicateColumns(tbl)
	if want := []string{"b"}; !reflect.DeepEqual(dropped, want) {
		t.Fatalf("dropped = %v, want %v", dropped, want)
	}
	if got, want := tbl.Names(), []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}
