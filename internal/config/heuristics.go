package config

// Heuristics gathers every tunable constant used by the cleaning pipeline:
// null vocabularies, boolean vocabularies, sampling sizes, and thresholds.
// It is constructed once (usually via DefaultHeuristics) and passed into the
// pipeline at construction time; nothing in this package or its consumers
// mutates it after that.
//
// The threshold values are operational defaults, not semantically meaningful
// cutoffs. They have behaved well on real datasets but are deliberately
// exposed here rather than hardcoded at call sites.
type Heuristics struct {
	// NullTokens are case-insensitive placeholder tokens mapped to NULL
	// across all columns before any type checks run.
	NullTokens []string

	// TruthyTokens and FalsyTokens are the lowercase vocabularies accepted by
	// boolean coercion.
	TruthyTokens []string
	FalsyTokens  []string

	// BooleanMaxDistinct is the maximum number of distinct non-null values a
	// column may have and still be considered boolean.
	BooleanMaxDistinct int

	// BooleanTokenRate is the minimum fraction of non-null values that must
	// belong to the boolean vocabularies.
	BooleanTokenRate float64

	// NumericSampleSize caps how many non-null values the numeric check
	// samples per column.
	NumericSampleSize int

	// NumericMatchRate is the minimum fraction of sampled values that must
	// match the numeric-or-percent pattern.
	NumericMatchRate float64

	// DatetimeCommitRate is the minimum non-null parse rate required to
	// commit a full-column datetime coercion.
	DatetimeCommitRate float64

	// MetadataLookback is how many leading rows the metadata detector scans.
	MetadataLookback int

	// MetadataLowNumeric / MetadataHighNumeric bracket the text-to-numeric
	// transition: a row is metadata when its numeric fraction is below the
	// low bound while the next row's is above the high bound.
	MetadataLowNumeric  float64
	MetadataHighNumeric float64

	// OutlierIQRMultiplier scales the IQR when computing winsorization
	// bounds: [Q1 - m*IQR, Q3 + m*IQR].
	OutlierIQRMultiplier float64

	// ProfileNumericRate is the minimum fraction of sampled non-null values
	// that must parse as numeric for a column to be auto-profiled.
	ProfileNumericRate float64

	// CorrelationFloor is the minimum absolute Pearson correlation required
	// to prefer the neighbor-based multivariate imputation path.
	CorrelationFloor float64
}

// DefaultHeuristics returns the production defaults.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		NullTokens: []string{
			"", "na", "n/a", "none", "null", "nan", "?", "-", "--",
		},
		TruthyTokens: []string{"true", "t", "yes", "y", "1", "ano"},
		FalsyTokens:  []string{"false", "f", "no", "n", "0", "ne"},

		BooleanMaxDistinct: 3,
		BooleanTokenRate:   0.70,

		NumericSampleSize: 1000,
		NumericMatchRate:  0.80,

		DatetimeCommitRate: 0.60,

		MetadataLookback:    5,
		MetadataLowNumeric:  0.5,
		MetadataHighNumeric: 0.7,

		OutlierIQRMultiplier: 3.0,

		ProfileNumericRate: 0.50,

		CorrelationFloor: 0.3,
	}
}

// IsNullToken reports whether the trimmed, lowercased form of s is one of the
// configured null tokens.
func (h Heuristics) IsNullToken(s string) bool {
	for _, tok := range h.NullTokens {
		if s == tok {
			return true
		}
	}
	return false
}
