package metadata

import (
	"reflect"
	"testing"

	"scrub/internal/config"
)

/*
Unit tests for the metadata-row detector.

We cover:
  - a stacked text preamble above numeric data (the canonical case)
  - blank separator rows and repeated header blocks
  - immediate data (no metadata)
  - suggested header enrichment and its first-row-wins rule
  - short inputs and ambiguous rows
*/

// TestDetect_StackedTextRows verifies that a run of annotation rows followed
// by numeric data is classified as metadata in full.
func TestDetect_StackedTextRows(t *testing.T) {
	t.Parallel()

	header := []string{"id", "amount", "region"}
	rows := [][]string{
		{"Report generated by finance", "", ""},
		{"Source system: SAP", "", ""},
		{"Confidential", "", ""},
		{"1", "10.5", "7"},
		{"2", "11.0", "8"},
		{"3", "12.5", "9"},
		{"4", "13.0", "1"},
	}

	res := Detect(header, rows, config.DefaultHeuristics())
	if res.MetadataRows != 3 {
		t.Fatalf("MetadataRows = %d; want 3", res.MetadataRows)
	}
	if res.DataStart != 3 {
		t.Fatalf("DataStart = %d; want 3", res.DataStart)
	}
}

// TestDetect_BlankAndRepeatedHeader verifies blank separators and a repeated
// header block both count as metadata.
func TestDetect_BlankAndRepeatedHeader(t *testing.T) {
	t.Parallel()

	header := []string{"a", "b"}
	rows := [][]string{
		{"", ""},
		{"a", "b"},
		{"1", "2"},
		{"3", "4"},
	}

	res := Detect(header, rows, config.DefaultHeuristics())
	if res.MetadataRows != 2 {
		t.Fatalf("MetadataRows = %d; want 2", res.MetadataRows)
	}
}

// TestDetect_NoMetadata verifies data-first inputs pass through untouched.
func TestDetect_NoMetadata(t *testing.T) {
	t.Parallel()

	header := []string{"a", "b"}
	rows := [][]string{
		{"1", "2"},
		{"3", "4"},
	}

	res := Detect(header, rows, config.DefaultHeuristics())
	if res.MetadataRows != 0 || res.DataStart != 0 {
		t.Fatalf("Detect() = %+v; want zero metadata", res)
	}
	if res.ShouldRename {
		t.Fatalf("ShouldRename = true; want false")
	}
}

// TestDetect_TextColumnsAreNotMetadata verifies that genuinely textual data
// rows are not eaten: with no numeric transition ahead, nothing is flagged.
func TestDetect_TextColumnsAreNotMetadata(t *testing.T) {
	t.Parallel()

	header := []string{"name", "city"}
	rows := [][]string{
		{"alice", "lisbon"},
		{"bob", "porto"},
		{"carol", "braga"},
	}

	res := Detect(header, rows, config.DefaultHeuristics())
	if res.MetadataRows != 0 {
		t.Fatalf("MetadataRows = %d; want 0 for all-text data", res.MetadataRows)
	}
}

// TestDetect_SuggestedHeaders verifies enrichment from a text-bearing
// metadata row and the underscore-join naming.
func TestDetect_SuggestedHeaders(t *testing.T) {
	t.Parallel()

	header := []string{"q1", "q2"}
	rows := [][]string{
		{"revenue", "expenses"},
		{"100", "200"},
		{"300", "400"},
	}

	res := Detect(header, rows, config.DefaultHeuristics())
	if res.MetadataRows != 1 {
		t.Fatalf("MetadataRows = %d; want 1", res.MetadataRows)
	}
	if !res.ShouldRename {
		t.Fatalf("ShouldRename = false; want true")
	}
	want := []string{"q1_revenue", "q2_expenses"}
	if !reflect.DeepEqual(res.SuggestedHeaders, want) {
		t.Fatalf("SuggestedHeaders = %v; want %v", res.SuggestedHeaders, want)
	}
}

// TestDetect_ShortInput verifies lookback clamps to the available rows.
func TestDetect_ShortInput(t *testing.T) {
	t.Parallel()

	res := Detect([]string{"a"}, [][]string{{""}}, config.DefaultHeuristics())
	if res.MetadataRows != 1 {
		t.Fatalf("MetadataRows = %d; want 1", res.MetadataRows)
	}

	res = Detect([]string{"a"}, nil, config.DefaultHeuristics())
	if res.MetadataRows != 0 {
		t.Fatalf("MetadataRows on empty input = %d; want 0", res.MetadataRows)
	}
}

// TestNumericFraction covers the cell-level classifier directly.
func TestNumericFraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		row  []string
		want float64
	}{
		{[]string{"1", "2"}, 1},
		{[]string{"1", "x"}, 0.5},
		{[]string{"", ""}, 0},
		{[]string{"1,234", "text"}, 0.5},
	}
	for _, c := range cases {
		if got := numericFraction(c.row); got != c.want {
			t.Fatalf("numericFraction(%v) = %v; want %v", c.row, got, c.want)
		}
	}
}
