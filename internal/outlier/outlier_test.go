package outlier

import (
	"testing"

	"scrub/internal/config"
	"scrub/internal/table"
)

/*
Unit tests for IQR winsorization.

We cover:
  - clipping of extreme values to the computed bounds
  - the constant-column (IQR == 0) no-op
  - null cells passing through untouched
  - non-numeric columns being skipped entirely
  - the Quantile helper (table-driven)
*/

func numericColumn(name string, vals []any) *table.Table {
	return &table.Table{Cols: []table.Column{
		{Name: name, Kind: table.Numeric, Values: vals},
	}}
}

// TestCap_ClipsExtremes verifies values beyond Q3 + 3*IQR are clipped to the
// bound, not removed.
func TestCap_ClipsExtremes(t *testing.T) {
	t.Parallel()

	vals := []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, 1000.0}
	tbl := numericColumn("v", vals)

	changed := Cap(tbl, config.DefaultHeuristics())
	if changed["v"] != 1 {
		t.Fatalf("changed[v] = %d; want 1", changed["v"])
	}

	col := tbl.Column("v")
	rows := len(col.Values)
	if got := col.Values[rows-1].(float64); got >= 1000.0 {
		t.Fatalf("extreme value not clipped: %v", got)
	}
	// The clipped value must equal the upper bound, and every other value
	// must be untouched.
	for i := 0; i < rows-1; i++ {
		if col.Values[i] != vals[i] {
			t.Fatalf("Values[%d] = %v; want %v untouched", i, col.Values[i], vals[i])
		}
	}
}

// TestCap_ConstantColumnNoop verifies a zero IQR leaves everything alone.
func TestCap_ConstantColumnNoop(t *testing.T) {
	t.Parallel()

	tbl := numericColumn("v", []any{5.0, 5.0, 5.0, 5.0, 5.0})
	changed := Cap(tbl, config.DefaultHeuristics())
	if changed["v"] != 0 {
		t.Fatalf("changed[v] = %d; want 0 for constant column", changed["v"])
	}
	for i, v := range tbl.Column("v").Values {
		if v != 5.0 {
			t.Fatalf("Values[%d] = %v; want 5", i, v)
		}
	}
}

// TestCap_MostlyConstantNoop verifies IQR == 0 also holds when only the tails
// differ: the quartiles sit on the constant mass, and the guard refuses to
// clip when the bounds would collapse to a point.
func TestCap_MostlyConstantNoop(t *testing.T) {
	t.Parallel()

	vals := []any{5.0, 5.0, 5.0, 5.0, 5.0, 5.0, 5.0, 5.0, 5.0, 500.0}
	tbl := numericColumn("v", vals)
	changed := Cap(tbl, config.DefaultHeuristics())
	if changed["v"] != 0 {
		t.Fatalf("changed[v] = %d; want 0 when IQR is zero", changed["v"])
	}
	if got := tbl.Column("v").Values[9]; got != 500.0 {
		t.Fatalf("Values[9] = %v; want 500 untouched", got)
	}
}

// TestCap_IgnoresNullsAndText verifies nulls pass through and Text columns
// are skipped.
func TestCap_IgnoresNullsAndText(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Cols: []table.Column{
		{Name: "v", Kind: table.Numeric, Values: []any{1.0, nil, 2.0, 3.0, 4.0, 100.0}},
		{Name: "s", Kind: table.Text, Values: []any{"a", "b", "c", "d", "e", "f"}},
	}}

	changed := Cap(tbl, config.DefaultHeuristics())
	if _, ok := changed["s"]; ok {
		t.Fatalf("Text column appeared in the change map")
	}
	if tbl.Column("v").Values[1] != nil {
		t.Fatalf("null cell disturbed: %v", tbl.Column("v").Values[1])
	}
}

// TestQuantile covers the linear-interpolation quantile on sorted input.
func TestQuantile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		sorted []float64
		q      float64
		want   float64
	}{
		{"single", []float64{7}, 0.5, 7},
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"q1", []float64{1, 2, 3, 4, 5}, 0.25, 2},
		{"q3", []float64{1, 2, 3, 4, 5}, 0.75, 4},
		{"min", []float64{1, 2, 3}, 0, 1},
		{"max", []float64{1, 2, 3}, 1, 3},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := Quantile(c.sorted, c.q); got != c.want {
				t.Fatalf("Quantile(%v, %v) = %v; want %v", c.sorted, c.q, got, c.want)
			}
		})
	}
}
