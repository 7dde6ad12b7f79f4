// Package config defines the canonical, JSON-serializable configuration model
// for a cleaning run. It is intentionally small, explicit, and dependency-
// free so that run configs can be loaded from disk (or other sources) and
// passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure of run config
//     files.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job":    "vehicles",
//	  "source": { "locator": "file://data/vehicles.csv", "options": { "delimiter": ";" } },
//	  "clean":  { "cap_outliers": true, "impute_missing": true },
//	  "sink":   { "kind": "sqlite", "options": { "dsn": "out.db", "table": "vehicles_clean" } }
//	}
package config

import "encoding/json"

// Config describes a full cleaning run. It is the top-level object decoded
// from a run config file.
type Config struct {
	// Job is the logical job name used for metrics labeling and run reports.
	Job string `json:"job"`

	// Source identifies where the delimited input comes from.
	Source SourceConfig `json:"source"`

	// Clean toggles and tunes the cleaning stages.
	Clean CleanConfig `json:"clean"`

	// Sink describes where the cleaned table is persisted. Optional; when the
	// kind is empty, the cleaned table is only returned in memory.
	Sink SinkConfig `json:"sink"`

	// Runtime controls chunking, working-set bounds, and parallelism.
	Runtime RuntimeConfig `json:"runtime"`
}

// SourceConfig identifies the input data.
type SourceConfig struct {
	// Locator is a local path, a file:// URI, or an http(s):// URL.
	Locator string `json:"locator"`

	// Options is a free-form map interpreted by the reader. Typical keys:
	//   delimiter (string), encoding (string), has_header (bool),
	//   columns ([]string), date_columns ([]string), header_map (object)
	Options Options `json:"options"`
}

// HeaderMode controls header resolution.
type HeaderMode string

const (
	// HeaderAuto detects the header and stacked metadata rows automatically.
	HeaderAuto HeaderMode = "auto"
	// HeaderForce treats the first row as the header unconditionally.
	HeaderForce HeaderMode = "force"
	// HeaderSkip treats the input as headerless; columns get synthetic names.
	HeaderSkip HeaderMode = "skip"
)

// CleanConfig toggles individual cleaning stages. Every stage is independently
// toggleable; zero value means "everything on" via Normalize.
type CleanConfig struct {
	// ForceHeader overrides header auto-detection: "auto", "force", "skip".
	ForceHeader HeaderMode `json:"force_header"`

	// DatetimeInfer enables the datetime coercion stage.
	DatetimeInfer *bool `json:"datetime_infer"`

	// CapOutliers enables winsorization of numeric columns.
	CapOutliers *bool `json:"cap_outliers"`

	// ImputeMissing enables the imputation stage.
	ImputeMissing *bool `json:"impute_missing"`

	// DropEmptyColumns drops columns that are 100% null after coercion.
	DropEmptyColumns *bool `json:"drop_empty_columns"`

	// DropDuplicateRows drops exact duplicate rows after cleaning.
	DropDuplicateRows *bool `json:"drop_duplicate_rows"`
}

// Normalize resolves unset pointers to their defaults (all stages enabled)
// and returns a plain value with no pointer fields.
func (c CleanConfig) Normalize() ResolvedClean {
	b := func(p *bool) bool {
		if p == nil {
			return true
		}
		return *p
	}
	mode := c.ForceHeader
	if mode == "" {
		mode = HeaderAuto
	}
	return ResolvedClean{
		ForceHeader:       mode,
		DatetimeInfer:     b(c.DatetimeInfer),
		CapOutliers:       b(c.CapOutliers),
		ImputeMissing:     b(c.ImputeMissing),
		DropEmptyColumns:  b(c.DropEmptyColumns),
		DropDuplicateRows: b(c.DropDuplicateRows),
	}
}

// ResolvedClean is CleanConfig with defaults applied.
type ResolvedClean struct {
	ForceHeader       HeaderMode
	DatetimeInfer     bool
	CapOutliers       bool
	ImputeMissing     bool
	DropEmptyColumns  bool
	DropDuplicateRows bool
}

// SinkConfig selects the sink used to persist the cleaned table.
type SinkConfig struct {
	// Kind selects the sink implementation: "csv", "sqlite", or "postgres".
	// Empty means no persistence.
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the sink. Typical keys:
	//   path (csv), dsn + table (sqlite/postgres), batch_size (int)
	Options Options `json:"options"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend selects the implementation: "pushgateway" or "none".
	Backend string `json:"backend"`

	// PushgatewayURL is the base URL for the pushgateway backend.
	PushgatewayURL string `json:"pushgateway_url"`
}

// RuntimeConfig controls chunking, bounded-view sizing, and parallelism.
type RuntimeConfig struct {
	// ChunkSize is the number of rows per streaming batch. <=0 uses the
	// default (50000).
	ChunkSize int `json:"chunk_size"`

	// MaxRowsSampled caps the bounded working table used by stages that need
	// a cross-row view (imputation, dedup, constant-column detection).
	// <=0 uses the default (250000). Exceeding the cap is reported, not fatal.
	MaxRowsSampled int `json:"max_rows_sampled_for_working_set"`

	// SampleRowBudget stops reading after this many source rows (sampling
	// mode). 0 means read the whole source.
	SampleRowBudget int `json:"sample_row_budget"`

	// Workers is the number of parallel chunk-profiling workers. 0 or 1 runs
	// the profile sequentially.
	Workers int `json:"workers"`

	// Metrics selects the metrics backend for this run.
	Metrics MetricsConfig `json:"metrics"`
}

const (
	// DefaultChunkSize is used when RuntimeConfig.ChunkSize is unset.
	DefaultChunkSize = 50000
	// DefaultMaxRowsSampled is used when RuntimeConfig.MaxRowsSampled is unset.
	DefaultMaxRowsSampled = 250000
)

// EffectiveChunkSize returns ChunkSize with the default applied.
func (r RuntimeConfig) EffectiveChunkSize() int {
	if r.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return r.ChunkSize
}

// EffectiveWorkingSetCap returns MaxRowsSampled with the default applied.
func (r RuntimeConfig) EffectiveWorkingSetCap() int {
	if r.MaxRowsSampled <= 0 {
		return DefaultMaxRowsSampled
	}
	return r.MaxRowsSampled
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character settings such as a
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings (or an array of interface values containing strings).
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object decodes to a non-nil, empty Options map. This simplifies
// call sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Options{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	*o = m
	return nil
}
