// Package stats maintains running per-column statistics across chunks using
// a numerically stable streaming mean/variance (Welford within a chunk, the
// Chan pairwise formula across chunks).
//
// The merge is associative and commutative, so partial aggregates computed in
// any order (sequentially or by a worker pool) combine to the same result
// up to floating-point rounding. Memory is O(profiled columns), independent
// of source row count, and a partial aggregate is a valid statistic for the
// rows seen so far at any moment (early termination simply finalizes what is
// there).
package stats

import (
	"math"
	"strings"

	"scrub/internal/coerce"
	"scrub/internal/config"
	"scrub/internal/table"
)

// Aggregate is the mergeable running state for one column.
type Aggregate struct {
	Count int64
	Mean  float64
	M2    float64 // sum of squared deviations from the mean
	Min   float64
	Max   float64
	Sum   float64
	Nulls int64
}

// Observe folds one value into the aggregate (Welford update).
func (a *Aggregate) Observe(v float64) {
	if a.Count == 0 {
		a.Min, a.Max = v, v
	} else {
		if v < a.Min {
			a.Min = v
		}
		if v > a.Max {
			a.Max = v
		}
	}
	a.Count++
	delta := v - a.Mean
	a.Mean += delta / float64(a.Count)
	a.M2 += delta * (v - a.Mean)
	a.Sum += v
}

// ObserveNull counts a null without touching the numeric state.
func (a *Aggregate) ObserveNull() { a.Nulls++ }

// Merge combines two partial aggregates with the pairwise parallel-update
// formula:
//
//	n = n1+n2; δ = μ2−μ1; μ = μ1 + δ·(n2/n); M2 = M21 + M22 + δ²·(n1·n2/n)
//
// Min/max/sum/nulls merge elementwise. Merge(a, b) == Merge(b, a) and the
// operation is associative, which is what licenses out-of-order chunk
// processing.
func Merge(a, b Aggregate) Aggregate {
	if a.Count == 0 {
		b.Nulls += a.Nulls
		return b
	}
	if b.Count == 0 {
		a.Nulls += b.Nulls
		return a
	}
	n1, n2 := float64(a.Count), float64(b.Count)
	n := n1 + n2
	delta := b.Mean - a.Mean

	out := Aggregate{
		Count: a.Count + b.Count,
		Mean:  a.Mean + delta*(n2/n),
		M2:    a.M2 + b.M2 + delta*delta*(n1*n2/n),
		Sum:   a.Sum + b.Sum,
		Nulls: a.Nulls + b.Nulls,
		Min:   math.Min(a.Min, b.Min),
		Max:   math.Max(a.Max, b.Max),
	}
	return out
}

// Final is an immutable snapshot of a finalized column aggregate.
type Final struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"` // population standard deviation
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Nulls int64   `json:"nulls"`
}

// Finalize converts the running state into the reported statistics.
func (a Aggregate) Finalize() Final {
	f := Final{Count: a.Count, Mean: a.Mean, Sum: a.Sum, Nulls: a.Nulls}
	if a.Count > 0 {
		f.Min, f.Max = a.Min, a.Max
		f.Std = math.Sqrt(a.M2 / float64(a.Count))
	}
	return f
}

// Accumulator profiles a fixed or first-chunk-inferred set of columns across
// a stream of chunks.
type Accumulator struct {
	heur    config.Heuristics
	columns []string
	byName  map[string]*Aggregate
	decided bool
}

// NewAccumulator profiles the named columns. An empty columns slice defers
// the choice to the first chunk: a column qualifies when at least
// h.ProfileNumericRate of its sampled non-null values parse as numeric.
func NewAccumulator(columns []string, h config.Heuristics) *Accumulator {
	acc := &Accumulator{
		heur:    h,
		columns: columns,
		byName:  make(map[string]*Aggregate, len(columns)),
		decided: len(columns) > 0,
	}
	for _, c := range columns {
		acc.byName[c] = &Aggregate{}
	}
	return acc
}

// Consume folds one chunk into the running state. Chunks may arrive in any
// order; see Merge.
func (acc *Accumulator) Consume(t *table.Table) {
	if !acc.decided {
		acc.inferColumns(t)
	}
	for _, name := range acc.columns {
		agg, ok := acc.byName[name]
		if !ok {
			continue
		}
		col := t.Column(name)
		if col == nil {
			continue
		}
		for _, v := range col.Values {
			f, ok := cellNumeric(v, acc.heur)
			if !ok {
				agg.ObserveNull()
				continue
			}
			agg.Observe(f)
		}
	}
}

// MergeFrom folds another accumulator (a worker's partial result) into this
// one. Both must have been built over the same column set.
func (acc *Accumulator) MergeFrom(other *Accumulator) {
	if !acc.decided {
		acc.columns = other.columns
		acc.decided = other.decided
		for _, c := range acc.columns {
			if _, ok := acc.byName[c]; !ok {
				acc.byName[c] = &Aggregate{}
			}
		}
	}
	for name, theirs := range other.byName {
		if mine, ok := acc.byName[name]; ok {
			merged := Merge(*mine, *theirs)
			*mine = merged
		}
	}
}

// Columns returns the profiled column names.
func (acc *Accumulator) Columns() []string { return acc.columns }

// Finalize snapshots every profiled column. The accumulator remains usable;
// immutability of the snapshot is the caller-facing guarantee.
func (acc *Accumulator) Finalize() map[string]Final {
	out := make(map[string]Final, len(acc.byName))
	for name, agg := range acc.byName {
		out[name] = agg.Finalize()
	}
	return out
}

// inferColumns picks profiled columns from the first chunk.
func (acc *Accumulator) inferColumns(t *table.Table) {
	acc.decided = true
	rate := acc.heur.ProfileNumericRate
	if rate <= 0 {
		rate = 0.5
	}
	for _, col := range t.Cols {
		if col.Kind == table.Numeric {
			acc.add(col.Name)
			continue
		}
		if col.Kind != table.Text {
			continue
		}
		nonNull, numeric := 0, 0
		for _, v := range col.Values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" || acc.heur.IsNullToken(strings.ToLower(s)) {
				continue
			}
			nonNull++
			if _, ok := coerce.ParseNumeric(s); ok {
				numeric++
			}
		}
		if nonNull > 0 && float64(numeric)/float64(nonNull) >= rate {
			acc.add(col.Name)
		}
	}
}

func (acc *Accumulator) add(name string) {
	acc.columns = append(acc.columns, name)
	acc.byName[name] = &Aggregate{}
}

// cellNumeric extracts a float from a cell: float64 cells directly, string
// cells via the shared numeric parser with null tokens treated as null.
func cellNumeric(v any, h config.Heuristics) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" || h.IsNullToken(strings.ToLower(s)) {
			return 0, false
		}
		return coerce.ParseNumeric(s)
	default:
		return 0, false
	}
}
