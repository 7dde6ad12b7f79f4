package cleaner

import (
	"encoding/json"
	"io"
	"time"

	"scrub/internal/coerce"
	"scrub/internal/impute"
	"scrub/internal/stats"
	"scrub/internal/table"
)

// Report is the machine-readable account of one cleaning run. Every mutation
// the pipeline made is counted here; nothing is changed silently.
type Report struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Locator    string    `json:"locator"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Committed ingest combination.
	Encoding string `json:"encoding"`
	Engine   string `json:"engine"`

	RowsRead    int64 `json:"rows_read"`
	RowsSkipped int64 `json:"rows_skipped"`
	RowsOut     int   `json:"rows_out"`
	ColsIn      int   `json:"cols_in"`
	ColsOut     int   `json:"cols_out"`

	// Header resolution.
	MetadataRows     int      `json:"metadata_rows_found"`
	SuggestedHeaders []string `json:"suggested_headers,omitempty"`

	// Per-stage mutation counts.
	Coercion    coerce.Deltas     `json:"coercion"`
	OutlierCaps map[string]int    `json:"outlier_caps,omitempty"`
	Imputation  []impute.Decision `json:"imputation,omitempty"`

	DuplicateRowsDropped    int      `json:"duplicate_rows_dropped"`
	EmptyColumnsDropped     []string `json:"empty_columns_dropped,omitempty"`
	DuplicateColumnsDropped []string `json:"duplicate_columns_dropped,omitempty"`

	// Final column schema and numeric profile.
	ColumnKinds       map[string]string      `json:"column_kinds"`
	Stats             map[string]stats.Final `json:"stats,omitempty"`
	SchemaFingerprint string                 `json:"schema_fingerprint"`

	// WorkingSetTruncated is set when the source exceeded the bounded
	// working table; cross-row stages saw only the retained prefix.
	WorkingSetTruncated bool `json:"working_set_truncated"`

	Warnings []string `json:"warnings,omitempty"`
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// fillSchema records the final column kinds and fingerprint from t.
func (r *Report) fillSchema(t *table.Table) {
	r.ColsOut = t.NumCols()
	r.RowsOut = t.NumRows()
	r.ColumnKinds = make(map[string]string, t.NumCols())
	for _, col := range t.Cols {
		r.ColumnKinds[col.Name] = col.Kind.String()
	}
	r.SchemaFingerprint = t.Fingerprint()
}
