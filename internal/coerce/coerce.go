// Package coerce classifies and converts all-Text columns into their best-fit
// kind: boolean, numeric, datetime, or left as text.
//
// Checks run per column in priority order (boolean → numeric → datetime) over
// sampled values; a check that clears its threshold commits the whole column.
// Null-token normalization runs globally first so the heuristics never see
// placeholder junk as data. Columns that are already typed pass through
// untouched, which is what makes a second run over cleaned output a no-op.
//
// Over-triggering is accepted by design: a heuristically coerced column that
// does not perfectly fit simply accumulates extra nulls. The ratio thresholds
// in config.Heuristics are the sole safety valve.
package coerce

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"scrub/internal/config"
	"scrub/internal/table"
)

// Options control the optional parts of the pipeline.
type Options struct {
	// InferDatetime enables the datetime check.
	InferDatetime bool

	// DateColumns forces the datetime check for the named columns regardless
	// of name hints or sampling.
	DateColumns []string
}

// Deltas counts values changed per mutation class. A value counts as changed
// only when its canonical rendering differs from the raw input, so re-running
// the pipeline over already-clean data reports zeros.
type Deltas struct {
	NullTokens int // placeholder tokens mapped to NULL
	Booleans   int // boolean cells standardized
	Numerics   int // numeric cells rewritten (separators, percents)
	Datetimes  int // datetime cells reformatted from non-canonical layouts
}

// Total returns the sum of all mutation counts.
func (d Deltas) Total() int {
	return d.NullTokens + d.Booleans + d.Numerics + d.Datetimes
}

// numericPattern matches plain or thousands-separated decimals with an
// optional sign and trailing percent.
var numericPattern = regexp.MustCompile(
	`^[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?%?$|^[+-]?\.\d+%?$`,
)

// isoDatePattern is the cheap screen used before attempting full parsing.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// datetimeLayouts are tried in order during full-column parsing.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
}

// nameHints mark column names that suggest temporal content.
var nameHints = []string{"date", "time", "_at", "_dt", "timestamp", "year", "month", "day"}

// Apply coerces every Text column of t in place and returns the change
// counts. Non-Text columns are untouched.
func Apply(t *table.Table, h config.Heuristics, opts Options) Deltas {
	var d Deltas

	forced := make(map[string]struct{}, len(opts.DateColumns))
	for _, c := range opts.DateColumns {
		forced[c] = struct{}{}
	}

	for i := range t.Cols {
		col := &t.Cols[i]
		if col.Kind != table.Text {
			continue
		}
		d.NullTokens += normalizeNulls(col, h)

		if n, ok := tryBoolean(col, h); ok {
			d.Booleans += n
			continue
		}
		if n, ok := tryNumeric(col, h); ok {
			d.Numerics += n
			continue
		}
		_, isForced := forced[col.Name]
		if opts.InferDatetime || isForced {
			if n, ok := tryDatetime(col, h, isForced); ok {
				d.Datetimes += n
			}
		}
	}
	return d
}

// normalizeNulls maps placeholder tokens to NULL across the column. Empty
// strings become NULL silently; only non-empty tokens ("na", "n/a", ...)
// count toward the delta, since an empty cell round-trips through any sink as
// an empty cell.
func normalizeNulls(col *table.Column, h config.Heuristics) int {
	changed := 0
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(s))
		if !h.IsNullToken(t) {
			continue
		}
		col.Values[i] = nil
		if t != "" {
			changed++
		}
	}
	return changed
}

// tryBoolean commits when the column has at most h.BooleanMaxDistinct
// distinct non-null normalized values and at least h.BooleanTokenRate of them
// belong to the truthy/falsy vocabularies. Non-matching tokens become NULL.
func tryBoolean(col *table.Column, h config.Heuristics) (int, bool) {
	distinct := make(map[string]struct{})
	nonNull, matching := 0, 0
	for _, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(s))
		nonNull++
		// Vocabulary members collapse to their boolean identity before the
		// distinct count, so {"yes","y","no","n"} is two values, not four.
		switch {
		case inVocab(t, h.TruthyTokens):
			matching++
			distinct["true"] = struct{}{}
		case inVocab(t, h.FalsyTokens):
			matching++
			distinct["false"] = struct{}{}
		default:
			distinct[t] = struct{}{}
		}
	}
	if nonNull == 0 || len(distinct) > h.BooleanMaxDistinct {
		return 0, false
	}
	if float64(matching)/float64(nonNull) < h.BooleanTokenRate {
		return 0, false
	}

	changed := 0
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(s))
		switch {
		case inVocab(t, h.TruthyTokens):
			col.Values[i] = true
			if t != "true" {
				changed++
			}
		case inVocab(t, h.FalsyTokens):
			col.Values[i] = false
			if t != "false" {
				changed++
			}
		default:
			col.Values[i] = nil
			changed++
		}
	}
	col.Kind = table.Boolean
	return changed, true
}

// tryNumeric samples up to h.NumericSampleSize non-null values; when at least
// h.NumericMatchRate of them match the numeric-or-percent pattern the whole
// column commits. Percent tokens are divided by 100; non-matching tokens
// become NULL. Extra nulls from over-triggering are accepted (the thresholds
// are the safety valve).
func tryNumeric(col *table.Column, h config.Heuristics) (int, bool) {
	sampled, matched := 0, 0
	for _, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if sampled >= h.NumericSampleSize {
			break
		}
		sampled++
		if numericPattern.MatchString(strings.TrimSpace(s)) {
			matched++
		}
	}
	if sampled == 0 || float64(matched)/float64(sampled) < h.NumericMatchRate {
		return 0, false
	}

	changed := 0
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		f, ok := ParseNumeric(s)
		if !ok {
			col.Values[i] = nil
			changed++
			continue
		}
		col.Values[i] = f
		if Render(f) != s {
			changed++
		}
	}
	col.Kind = table.Numeric
	return changed, true
}

// tryDatetime runs only when the column name hints at temporal content, the
// caller forced it, or a majority of sampled values look ISO-like. The
// coercion commits only when the resulting non-null parse rate exceeds
// h.DatetimeCommitRate; otherwise the column is restored untouched.
func tryDatetime(col *table.Column, h config.Heuristics, force bool) (int, bool) {
	if !force && !nameHintsTemporal(col.Name) && !majorityISO(col) {
		return 0, false
	}

	parsed := make([]any, len(col.Values))
	nonNull, okCount, changed := 0, 0, 0
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			parsed[i] = nil
			continue
		}
		nonNull++
		s = strings.TrimSpace(s)
		ts, layout, ok := parseDatetime(s)
		if !ok {
			parsed[i] = nil
			continue
		}
		okCount++
		parsed[i] = ts
		if RenderTime(ts) != s && layout != time.RFC3339 {
			changed++
		}
	}
	if nonNull == 0 || float64(okCount)/float64(nonNull) <= h.DatetimeCommitRate {
		return 0, false
	}
	for i := range col.Values {
		if _, isStr := col.Values[i].(string); isStr || parsed[i] != nil {
			col.Values[i] = parsed[i]
		}
	}
	col.Kind = table.Datetime
	return changed, true
}

// ParseNumeric parses a numeric-or-percent token, handling thousands
// separators and trailing '%' (divided by 100).
func ParseNumeric(s string) (float64, bool) {
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if pct {
		f /= 100
	}
	return f, true
}

// Render is the canonical textual form of a numeric cell, shared with the
// CSV sink so cleaned output re-ingests without spurious change counts. The
// 'f' format is used because scientific notation would not survive a
// round-trip through the numeric pattern.
func Render(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderTime is the canonical textual form of a datetime cell: a bare date
// when there is no clock component, RFC 3339 otherwise.
func RenderTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func parseDatetime(s string) (time.Time, string, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

func nameHintsTemporal(name string) bool {
	n := strings.ToLower(name)
	for _, hint := range nameHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}

func majorityISO(col *table.Column) bool {
	nonNull, iso := 0, 0
	for _, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		nonNull++
		if isoDatePattern.MatchString(strings.TrimSpace(s)) {
			iso++
		}
	}
	return nonNull > 0 && iso*2 > nonNull
}

func inVocab(s string, vocab []string) bool {
	for _, v := range vocab {
		if s == v {
			return true
		}
	}
	return false
}
