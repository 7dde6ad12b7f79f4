package stats

import (
	"math"
	"math/rand"
	"testing"

	"scrub/internal/config"
	"scrub/internal/table"
)

/*
Unit tests for the streaming aggregates.

We cover:
  - Welford single-pass results against naive two-pass formulas
  - the pairwise Merge: commutativity, associativity, zero-count identity
  - chunk-size invariance (the same rows in different chunkings produce the
    same statistics up to floating-point tolerance)
  - null counting and string-cell parsing
  - first-chunk column inference
*/

const tol = 1e-9

func almostEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tol*math.Max(scale, 1)
}

// naive computes reference statistics with two passes.
func naive(vals []float64) (mean, std float64) {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(vals)))
	return mean, std
}

// TestAggregate_Observe compares the streaming update against the two-pass
// reference on random data.
func TestAggregate_Observe(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	vals := make([]float64, 5000)
	for i := range vals {
		vals[i] = rng.NormFloat64()*40 + 100
	}

	var agg Aggregate
	for _, v := range vals {
		agg.Observe(v)
	}
	f := agg.Finalize()

	wantMean, wantStd := naive(vals)
	if !almostEqual(f.Mean, wantMean) {
		t.Fatalf("Mean = %v; want %v", f.Mean, wantMean)
	}
	if !almostEqual(f.Std, wantStd) {
		t.Fatalf("Std = %v; want %v", f.Std, wantStd)
	}
	if f.Count != int64(len(vals)) {
		t.Fatalf("Count = %d; want %d", f.Count, len(vals))
	}
}

// TestAggregate_MinMaxSum verifies the order statistics and totals.
func TestAggregate_MinMaxSum(t *testing.T) {
	t.Parallel()

	var agg Aggregate
	for _, v := range []float64{3, -1, 4, 1.5} {
		agg.Observe(v)
	}
	agg.ObserveNull()
	f := agg.Finalize()

	if f.Min != -1 || f.Max != 4 {
		t.Fatalf("Min/Max = %v/%v; want -1/4", f.Min, f.Max)
	}
	if f.Sum != 7.5 {
		t.Fatalf("Sum = %v; want 7.5", f.Sum)
	}
	if f.Nulls != 1 {
		t.Fatalf("Nulls = %d; want 1", f.Nulls)
	}
}

func fold(vals []float64) Aggregate {
	var a Aggregate
	for _, v := range vals {
		a.Observe(v)
	}
	return a
}

// TestMerge_MatchesSinglePass verifies that merging partial aggregates gives
// the same result as observing everything in one pass.
func TestMerge_MatchesSinglePass(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	vals := make([]float64, 4000)
	for i := range vals {
		vals[i] = rng.ExpFloat64() * 10
	}

	whole := fold(vals).Finalize()

	for _, split := range []int{1, 7, 100, 3999} {
		merged := Merge(fold(vals[:split]), fold(vals[split:])).Finalize()
		if !almostEqual(merged.Mean, whole.Mean) || !almostEqual(merged.Std, whole.Std) {
			t.Fatalf("split %d: merged = %+v; want %+v", split, merged, whole)
		}
		if merged.Count != whole.Count || merged.Min != whole.Min || merged.Max != whole.Max {
			t.Fatalf("split %d: count/min/max mismatch: %+v vs %+v", split, merged, whole)
		}
	}
}

// TestMerge_CommutativeAssociative verifies the algebraic laws the worker
// pool relies on.
func TestMerge_CommutativeAssociative(t *testing.T) {
	t.Parallel()

	a := fold([]float64{1, 2, 3})
	b := fold([]float64{10, 20})
	c := fold([]float64{-5, 0, 5, 100})

	ab := Merge(a, b)
	ba := Merge(b, a)
	if fab, fba := ab.Finalize(), ba.Finalize(); !almostEqual(fab.Mean, fba.Mean) || !almostEqual(fab.Std, fba.Std) {
		t.Fatalf("Merge not commutative: %+v vs %+v", fab, fba)
	}

	left := Merge(Merge(a, b), c).Finalize()
	right := Merge(a, Merge(b, c)).Finalize()
	if !almostEqual(left.Mean, right.Mean) || !almostEqual(left.Std, right.Std) || left.Count != right.Count {
		t.Fatalf("Merge not associative: %+v vs %+v", left, right)
	}
}

// TestMerge_ZeroCountIdentity verifies empty aggregates are identities that
// still carry their null counts.
func TestMerge_ZeroCountIdentity(t *testing.T) {
	t.Parallel()

	a := fold([]float64{1, 2, 3})
	var empty Aggregate
	empty.ObserveNull()
	empty.ObserveNull()

	out := Merge(a, empty)
	if out.Count != 3 || out.Nulls != 2 {
		t.Fatalf("Merge(a, empty) = %+v; want count 3, nulls 2", out)
	}
	out = Merge(empty, a)
	if out.Count != 3 || out.Nulls != 2 {
		t.Fatalf("Merge(empty, a) = %+v; want count 3, nulls 2", out)
	}
}

func chunked(header string, vals []any, size int) []*table.Table {
	var chunks []*table.Table
	for lo := 0; lo < len(vals); lo += size {
		hi := lo + size
		if hi > len(vals) {
			hi = len(vals)
		}
		chunks = append(chunks, &table.Table{Cols: []table.Column{
			{Name: header, Kind: table.Numeric, Values: vals[lo:hi]},
		}})
	}
	return chunks
}

// TestAccumulator_ChunkSizeInvariance verifies the central streaming
// property: statistics do not depend on how rows are grouped into chunks.
func TestAccumulator_ChunkSizeInvariance(t *testing.T) {
	t.Parallel()

	h := config.DefaultHeuristics()
	rng := rand.New(rand.NewSource(3))
	vals := make([]any, 2500)
	for i := range vals {
		if i%17 == 0 {
			vals[i] = nil
		} else {
			vals[i] = rng.NormFloat64() * 3
		}
	}

	var finals []Final
	for _, size := range []int{1, 10, 333, 2500} {
		acc := NewAccumulator([]string{"v"}, h)
		for _, c := range chunked("v", vals, size) {
			acc.Consume(c)
		}
		finals = append(finals, acc.Finalize()["v"])
	}

	base := finals[0]
	for i, f := range finals[1:] {
		if f.Count != base.Count || f.Nulls != base.Nulls {
			t.Fatalf("chunking %d: count/nulls = %d/%d; want %d/%d", i, f.Count, f.Nulls, base.Count, base.Nulls)
		}
		if !almostEqual(f.Mean, base.Mean) || !almostEqual(f.Std, base.Std) {
			t.Fatalf("chunking %d: mean/std = %v/%v; want %v/%v", i, f.Mean, f.Std, base.Mean, base.Std)
		}
	}
}

// TestAccumulator_StringCells verifies text chunks profile through the shared
// numeric parser with null tokens counted as nulls.
func TestAccumulator_StringCells(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator([]string{"v"}, config.DefaultHeuristics())
	acc.Consume(&table.Table{Cols: []table.Column{
		{Name: "v", Kind: table.Text, Values: []any{"1", "2", "NA", "3", "junk", nil}},
	}})

	f := acc.Finalize()["v"]
	if f.Count != 3 {
		t.Fatalf("Count = %d; want 3", f.Count)
	}
	if f.Nulls != 3 {
		t.Fatalf("Nulls = %d; want 3 (token, junk, nil)", f.Nulls)
	}
	if f.Sum != 6 {
		t.Fatalf("Sum = %v; want 6", f.Sum)
	}
}

// TestAccumulator_InferColumns verifies first-chunk inference picks numeric
// and numeric-looking columns only.
func TestAccumulator_InferColumns(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(nil, config.DefaultHeuristics())
	acc.Consume(&table.Table{Cols: []table.Column{
		{Name: "typed", Kind: table.Numeric, Values: []any{1.0, 2.0}},
		{Name: "texty_nums", Kind: table.Text, Values: []any{"10", "20"}},
		{Name: "words", Kind: table.Text, Values: []any{"a", "b"}},
		{Name: "flag", Kind: table.Boolean, Values: []any{true, false}},
	}})

	got := map[string]bool{}
	for _, c := range acc.Columns() {
		got[c] = true
	}
	if !got["typed"] || !got["texty_nums"] {
		t.Fatalf("Columns() = %v; want typed and texty_nums profiled", acc.Columns())
	}
	if got["words"] || got["flag"] {
		t.Fatalf("Columns() = %v; words/flag must not be profiled", acc.Columns())
	}
}
