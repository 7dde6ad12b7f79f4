package reader

import (
	"reflect"
	"testing"
)

/*
Unit tests for header resolution.

We cover:
  - NormalizeName: lowercasing, accent stripping, separator folding, and the
    "col" fallback for names that normalize to nothing
  - resolveHeader: header_map precedence, collision suffixes, empty cells
  - syntheticHeader for headerless inputs
  - stripHeaderBOM
*/

// TestNormalizeName checks the raw-header-to-identifier conversion.
func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Revenue (USD)", "revenue_usd"},
		{"Café Münü", "cafe_munu"},
		{"  First Name  ", "first_name"},
		{"q1.revenue-total", "q1_revenue_total"},
		{"__already__snaked__", "already_snaked"},
		{"2024 Sales", "2024_sales"},
		{"a - b", "a_b"},
		{"€€€", "col"},
		{"", "col"},
		{"UPPER", "upper"},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestResolveHeader_HeaderMap checks that a mapped name wins over
// normalization and is used verbatim.
func TestResolveHeader_HeaderMap(t *testing.T) {
	t.Parallel()

	got := resolveHeader(
		[]string{" Amt ", "Qty!!"},
		map[string]string{"Amt": "amount_usd"},
	)
	want := []string{"amount_usd", "qty"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resolveHeader = %v, want %v", got, want)
	}
}

// TestResolveHeader_Collisions checks that repeated names get positional
// suffixes so the table invariant of unique names holds.
func TestResolveHeader_Collisions(t *testing.T) {
	t.Parallel()

	got := resolveHeader([]string{"Name", "name", "NAME"}, nil)
	want := []string{"name", "name_2", "name_3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resolveHeader = %v, want %v", got, want)
	}
}

// TestResolveHeader_EmptyCells checks that blank header cells fall back to
// "col" and still get deduplicated.
func TestResolveHeader_EmptyCells(t *testing.T) {
	t.Parallel()

	got := resolveHeader([]string{"", "  ", "id"}, nil)
	want := []string{"col", "col_2", "id"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resolveHeader = %v, want %v", got, want)
	}
}

// TestSyntheticHeader checks positional names for headerless inputs.
func TestSyntheticHeader(t *testing.T) {
	t.Parallel()

	got := syntheticHeader(3)
	want := []string{"col_0", "col_1", "col_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("syntheticHeader(3) = %v, want %v", got, want)
	}
}

// TestStripHeaderBOM checks that a BOM surviving inside decoded text is
// removed from the first cell only.
func TestStripHeaderBOM(t *testing.T) {
	t.Parallel()

	got := stripHeaderBOM([]string{"\uFEFFid", "\uFEFFnot_first"})
	if got[0] != "id" {
		t.Errorf("first cell = %q, want %q", got[0], "id")
	}
	if got[1] != "\uFEFFnot_first" {
		t.Errorf("second cell = %q, want it untouched", got[1])
	}
}
