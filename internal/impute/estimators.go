package impute

import (
	"errors"
	"math"
	"sort"

	"scrub/internal/table"
)

// errEstimator marks a recoverable estimator failure; the selector catches it
// and downgrades to the next simpler method in the same branch.
var errEstimator = errors.New("estimator failed")

// floats returns the non-null float values of a numeric column.
func floats(col *table.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func mean(col *table.Column) float64 {
	vals := floats(col)
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(col *table.Column) float64 {
	vals := floats(col)
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		return (vals[mid-1] + vals[mid]) / 2
	}
	return vals[mid]
}

// skewness returns the population skewness g1 = m3 / m2^(3/2), or 0 when it
// is undefined (fewer than 3 values or zero variance).
func skewness(col *table.Column) float64 {
	vals := floats(col)
	if len(vals) < 3 {
		return 0
	}
	n := float64(len(vals))
	mu := 0.0
	for _, v := range vals {
		mu += v
	}
	mu /= n

	m2, m3 := 0.0, 0.0
	for _, v := range vals {
		d := v - mu
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// pearson computes the correlation of two columns over rows where both are
// non-null. Returns 0 when fewer than 3 paired values exist or either side
// is constant.
func pearson(a, b *table.Column) float64 {
	var xs, ys []float64
	for i := range a.Values {
		x, okx := a.Values[i].(float64)
		y, oky := b.Values[i].(float64)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	n := float64(len(xs))
	if n < 3 {
		return 0
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// numericPredictors returns every numeric column except the target.
func numericPredictors(t *table.Table, target string) []*table.Column {
	var out []*table.Column
	for i := range t.Cols {
		c := &t.Cols[i]
		if c.Kind == table.Numeric && c.Name != target {
			out = append(out, c)
		}
	}
	return out
}

// strongestCorrelation returns the largest-magnitude Pearson correlation of
// the target against the predictors (signed).
func strongestCorrelation(t *table.Table, target *table.Column, predictors []*table.Column) float64 {
	best := 0.0
	for _, p := range predictors {
		r := pearson(target, p)
		if math.Abs(r) > math.Abs(best) {
			best = r
		}
	}
	return best
}

// knnK is the neighborhood size for the neighbor-based estimator.
const knnK = 5

// knnFill estimates each missing target value as the mean of the target over
// the k nearest complete rows, with distance computed over the predictor
// columns after per-column standardization. Rows missing a predictor fall
// back to that predictor's mean, so sparse predictors degrade distance
// quality instead of shrinking the candidate pool.
func knnFill(t *table.Table, target *table.Column, predictors []*table.Column) (int, error) {
	rows := t.NumRows()
	if len(predictors) == 0 {
		return 0, errEstimator
	}

	// Standardization parameters per predictor.
	mus := make([]float64, len(predictors))
	sds := make([]float64, len(predictors))
	for j, p := range predictors {
		vals := floats(p)
		if len(vals) == 0 {
			return 0, errEstimator
		}
		var sum, sq float64
		for _, v := range vals {
			sum += v
		}
		mu := sum / float64(len(vals))
		for _, v := range vals {
			d := v - mu
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(len(vals)))
		if sd == 0 {
			sd = 1
		}
		mus[j], sds[j] = mu, sd
	}

	feature := func(row, j int) float64 {
		if f, ok := predictors[j].Values[row].(float64); ok {
			return (f - mus[j]) / sds[j]
		}
		return 0 // predictor mean after standardization
	}

	// Candidate rows: target observed.
	var observed []int
	for i := 0; i < rows; i++ {
		if _, ok := target.Values[i].(float64); ok {
			observed = append(observed, i)
		}
	}
	if len(observed) == 0 {
		return 0, errEstimator
	}

	type cand struct {
		dist float64
		row  int
	}
	filled := 0
	for i := 0; i < rows; i++ {
		if target.Values[i] != nil {
			continue
		}
		cands := make([]cand, 0, len(observed))
		for _, o := range observed {
			d := 0.0
			for j := range predictors {
				diff := feature(i, j) - feature(o, j)
				d += diff * diff
			}
			cands = append(cands, cand{dist: d, row: o})
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
		k := knnK
		if k > len(cands) {
			k = len(cands)
		}
		sum := 0.0
		for _, c := range cands[:k] {
			sum += target.Values[c.row].(float64)
		}
		target.Values[i] = sum / float64(k)
		filled++
	}
	return filled, nil
}

// iterativeRounds is the fixed iteration count for the regression estimator.
const iterativeRounds = 3

// iterativeFill runs a small round-based regression imputation: missing
// target cells start at the median, then each round re-fits a simple linear
// regression of the target on its best-correlated predictor and re-predicts
// the originally missing cells. Converges quickly for the near-linear
// relationships this bucket targets; pathological inputs surface as
// errEstimator rather than bad fills.
func iterativeFill(t *table.Table, target *table.Column, predictors []*table.Column) (int, error) {
	if len(predictors) == 0 {
		return 0, errEstimator
	}

	// Work on the originally-missing index set.
	var missing []int
	for i, v := range target.Values {
		if v == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	med := median(target)
	for _, i := range missing {
		target.Values[i] = med
	}

	for round := 0; round < iterativeRounds; round++ {
		best := bestPredictor(target, predictors)
		if best == nil {
			restoreNulls(target, missing)
			return 0, errEstimator
		}
		slope, intercept, ok := fitLinear(best, target)
		if !ok {
			restoreNulls(target, missing)
			return 0, errEstimator
		}
		for _, i := range missing {
			x, okx := best.Values[i].(float64)
			if !okx {
				continue // keep the current estimate for this cell
			}
			target.Values[i] = intercept + slope*x
		}
	}

	for _, i := range missing {
		if f, ok := target.Values[i].(float64); !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			restoreNulls(target, missing)
			return 0, errEstimator
		}
	}
	return len(missing), nil
}

func restoreNulls(col *table.Column, idx []int) {
	for _, i := range idx {
		col.Values[i] = nil
	}
}

func bestPredictor(target *table.Column, predictors []*table.Column) *table.Column {
	var best *table.Column
	bestAbs := 0.0
	for _, p := range predictors {
		r := math.Abs(pearson(target, p))
		if r > bestAbs {
			best, bestAbs = p, r
		}
	}
	return best
}

// fitLinear fits y = intercept + slope*x over rows where both are observed.
func fitLinear(x, y *table.Column) (slope, intercept float64, ok bool) {
	var xs, ys []float64
	for i := range x.Values {
		xv, okx := x.Values[i].(float64)
		yv, oky := y.Values[i].(float64)
		if okx && oky {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	n := float64(len(xs))
	if n < 3 {
		return 0, 0, false
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n
	var cov, vx float64
	for i := range xs {
		cov += (xs[i] - mx) * (ys[i] - my)
		vx += (xs[i] - mx) * (xs[i] - mx)
	}
	if vx == 0 {
		return 0, 0, false
	}
	slope = cov / vx
	intercept = my - slope*mx
	return slope, intercept, true
}
