// Package impute selects and applies a per-column imputation strategy based
// on the missingness ratio and, for numeric columns, correlation structure
// with the other numeric columns.
//
// Strategy selection is a decision table, not a scoring model: each
// missingness bucket names one preferred method and an explicit fallback
// chain. Estimator failures are caught locally and downgrade to the next
// simpler method in the same branch, always recording which fallback fired
// and the correspondingly lower confidence. Datetime columns are never
// imputed — filling time axes fabricates temporal signal.
package impute

import (
	"fmt"
	"math"

	"scrub/internal/config"
	"scrub/internal/table"
)

// Decision records what was done to one column.
type Decision struct {
	Column          string  `json:"column"`
	Method          string  `json:"method"`
	Confidence      float64 `json:"confidence"`
	MissingFraction float64 `json:"missing_fraction"`
	ImputedCount    int     `json:"imputed_count"`

	// Fallback names the simpler method that fired when the preferred
	// estimator failed; empty when the first choice succeeded.
	Fallback string `json:"fallback,omitempty"`

	// Warning carries the high-missingness advisories surfaced in reports.
	Warning string `json:"warning,omitempty"`
}

// Method names recorded in decisions.
const (
	MethodMean       = "mean"
	MethodMedian     = "median"
	MethodKNN        = "knn"
	MethodIterative  = "iterative_regression"
	MethodFFillBFill = "ffill_bfill"
	MethodMode       = "mode"
	MethodUnknown    = "constant_unknown"
	MethodMissing    = "constant_missing"
	MethodHighMiss   = "constant_unknown_high_missing"
	MethodLeaveNull  = "leave_null"
)

// missingness bucket boundaries for numeric columns.
const (
	lowMissing      = 0.05
	moderateMissing = 0.30
	highMissing     = 0.50
)

// Apply imputes every column of t that has at least one null, in place, and
// returns one Decision per such column in column order.
func Apply(t *table.Table, h config.Heuristics) []Decision {
	var decisions []Decision
	rows := t.NumRows()
	if rows == 0 {
		return nil
	}

	for i := range t.Cols {
		col := &t.Cols[i]
		missing := countNulls(col)
		if missing == 0 {
			continue
		}
		if missing == rows {
			// Nothing to learn from; fully null columns are left for the
			// empty-column drop.
			continue
		}
		r := float64(missing) / float64(rows)

		var d Decision
		switch col.Kind {
		case table.Datetime:
			d = Decision{Column: col.Name, Method: MethodLeaveNull, Confidence: 1.0,
				MissingFraction: r}
		case table.Numeric:
			d = imputeNumeric(t, col, r, h)
		default: // Text and Boolean behave categorically
			d = imputeCategorical(col, r)
		}
		d.Column = col.Name
		d.MissingFraction = r
		decisions = append(decisions, d)
	}
	return decisions
}

// imputeNumeric walks the numeric decision table for one column.
func imputeNumeric(t *table.Table, col *table.Column, r float64, h config.Heuristics) Decision {
	switch {
	case r < lowMissing:
		// Central tendency: median for skewed columns, mean otherwise.
		if math.Abs(skewness(col)) > 1 {
			n := fillConst(col, median(col))
			return Decision{Method: MethodMedian, Confidence: 0.95, ImputedCount: n}
		}
		n := fillConst(col, mean(col))
		return Decision{Method: MethodMean, Confidence: 0.95, ImputedCount: n}

	case r < moderateMissing:
		return imputeMultivariate(t, col, h)

	default:
		// High missingness: only order-based fills, never a learned
		// estimator. Remaining nulls fall back to the median.
		warn := fmt.Sprintf("column %q is %.0f%% missing; order-based fill only", col.Name, r*100)
		n := fillForwardBackward(col)
		conf := 0.60
		if r >= highMissing {
			conf = 0.50
		}
		d := Decision{Method: MethodFFillBFill, Confidence: conf, ImputedCount: n, Warning: warn}
		if countNulls(col) > 0 {
			d.Fallback = MethodMedian
			d.ImputedCount += fillConst(col, median(col))
			if conf > 0.55 {
				d.Confidence = 0.55
			}
		}
		return d
	}
}

// imputeMultivariate handles the 5–30%% bucket: prefer the neighbor-based
// estimator when the column correlates with enough of the other numeric
// columns, otherwise the iterative regression estimator; either failing
// drops to a median fill at reduced confidence.
func imputeMultivariate(t *table.Table, col *table.Column, h config.Heuristics) Decision {
	predictors := numericPredictors(t, col.Name)
	best := strongestCorrelation(t, col, predictors)

	if math.Abs(best) > h.CorrelationFloor && len(predictors) >= 2 {
		n, err := knnFill(t, col, predictors)
		if err == nil {
			return Decision{Method: MethodKNN, Confidence: 0.85, ImputedCount: n}
		}
		n = fillConst(col, median(col))
		return Decision{Method: MethodKNN, Fallback: MethodMedian, Confidence: 0.70, ImputedCount: n}
	}

	n, err := iterativeFill(t, col, predictors)
	if err == nil {
		return Decision{Method: MethodIterative, Confidence: 0.80, ImputedCount: n}
	}
	n = fillConst(col, median(col))
	return Decision{Method: MethodIterative, Fallback: MethodMedian, Confidence: 0.70, ImputedCount: n}
}

// imputeCategorical walks the categorical/text decision table. Boolean
// columns are treated as two-level categoricals: the mode path applies, the
// sentinel paths cannot (a string sentinel has no place in a boolean column),
// so high-missing booleans fall back to mode at the bucket's confidence.
func imputeCategorical(col *table.Column, r float64) Decision {
	isBool := col.Kind == table.Boolean
	switch {
	case r < 0.10:
		if mv, ok := mode(col); ok {
			n := fillConst(col, mv)
			return Decision{Method: MethodMode, Confidence: 0.90, ImputedCount: n}
		}
		if isBool {
			return Decision{Method: MethodLeaveNull, Confidence: 0.50}
		}
		n := fillConst(col, "Unknown")
		return Decision{Method: MethodUnknown, Confidence: 0.50, ImputedCount: n}

	case r < 0.30:
		// The absence itself is informative; make it an explicit category
		// rather than guessing.
		if isBool {
			return modeOrLeave(col, 0.75)
		}
		n := fillConst(col, "Missing")
		return Decision{Method: MethodMissing, Confidence: 0.75, ImputedCount: n}

	default:
		warn := fmt.Sprintf("column %q is %.0f%% missing; filled with a high-missingness sentinel", col.Name, r*100)
		if isBool {
			d := modeOrLeave(col, 0.40)
			d.Warning = warn
			return d
		}
		n := fillConst(col, "Unknown_HighMissing")
		return Decision{Method: MethodHighMiss, Confidence: 0.40, ImputedCount: n, Warning: warn}
	}
}

func modeOrLeave(col *table.Column, conf float64) Decision {
	if mv, ok := mode(col); ok {
		n := fillConst(col, mv)
		return Decision{Method: MethodMode, Confidence: conf, ImputedCount: n}
	}
	return Decision{Method: MethodLeaveNull, Confidence: conf}
}

// countNulls returns the number of nil cells.
func countNulls(col *table.Column) int {
	n := 0
	for _, v := range col.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// fillConst replaces every null with v and returns the fill count.
func fillConst(col *table.Column, v any) int {
	n := 0
	for i := range col.Values {
		if col.Values[i] == nil {
			col.Values[i] = v
			n++
		}
	}
	return n
}

// fillForwardBackward carries the last observation forward, then the next
// observation backward for any leading nulls. Useful for ordered or
// time-like data; meaningless reordering is the caller's concern.
func fillForwardBackward(col *table.Column) int {
	n := 0
	var last any
	for i := range col.Values {
		if col.Values[i] == nil {
			if last != nil {
				col.Values[i] = last
				n++
			}
			continue
		}
		last = col.Values[i]
	}
	var next any
	for i := len(col.Values) - 1; i >= 0; i-- {
		if col.Values[i] == nil {
			if next != nil {
				col.Values[i] = next
				n++
			}
			continue
		}
		next = col.Values[i]
	}
	return n
}

// mode returns the most frequent non-null value. ok is false when the column
// has no non-null values or no value occurs more than once (no meaningful
// mode).
func mode(col *table.Column) (any, bool) {
	counts := make(map[any]int)
	for _, v := range col.Values {
		if v != nil {
			counts[v]++
		}
	}
	var best any
	bestN := 0
	for v, n := range counts {
		if n > bestN {
			best, bestN = v, n
		}
	}
	if bestN <= 1 && len(counts) != 1 {
		return nil, false
	}
	return best, bestN > 0
}
