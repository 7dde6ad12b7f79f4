// Package outlier winsorizes numeric columns: values outside
// [Q1 - m·IQR, Q3 + m·IQR] are clipped to the bound instead of removed.
// Quartiles are computed ignoring nulls; a zero or non-finite IQR (constant
// or all-null column) leaves the column unchanged.
package outlier

import (
	"math"
	"sort"

	"scrub/internal/config"
	"scrub/internal/table"
)

// Cap clips every Numeric column of t in place and returns the count of
// values changed per column. Columns with fewer than two non-null values, or
// a degenerate IQR, pass through with a zero count.
func Cap(t *table.Table, h config.Heuristics) map[string]int {
	m := h.OutlierIQRMultiplier
	if m <= 0 {
		m = 3.0
	}

	changed := make(map[string]int)
	for i := range t.Cols {
		col := &t.Cols[i]
		if col.Kind != table.Numeric {
			continue
		}
		changed[col.Name] = capColumn(col, m)
	}
	return changed
}

func capColumn(col *table.Column, m float64) int {
	vals := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			vals = append(vals, f)
		}
	}
	if len(vals) < 2 {
		return 0
	}
	sort.Float64s(vals)

	q1 := Quantile(vals, 0.25)
	q3 := Quantile(vals, 0.75)
	iqr := q3 - q1
	if iqr == 0 || math.IsNaN(iqr) || math.IsInf(iqr, 0) {
		return 0
	}

	lo := q1 - m*iqr
	hi := q3 + m*iqr
	n := 0
	for i, v := range col.Values {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		switch {
		case f < lo:
			col.Values[i] = lo
			n++
		case f > hi:
			col.Values[i] = hi
			n++
		}
	}
	return n
}

// Quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks. The input must be sorted ascending and
// non-empty.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
