// Package metadata separates a non-tabular preamble (blank separator rows,
// repeated header blocks, annotation rows) from the real tabular payload at
// the top of a file.
//
// The detector looks at the numeric fraction of each of the first few rows: a
// clear text-to-numeric transition marks the boundary between stacked
// metadata and data. Detection is advisory — it reports an offset and
// optionally proposes enriched column names, but it never rewrites anything
// itself.
package metadata

import (
	"strconv"
	"strings"

	"scrub/internal/config"
)

// Result describes what the detector found in the leading rows.
type Result struct {
	// DataStart is the row offset (within the inspected rows) where tabular
	// data begins.
	DataStart int

	// MetadataRows is the number of leading rows classified as metadata.
	MetadataRows int

	// SuggestedHeaders proposes enriched column names built by joining a
	// text-bearing metadata row with the declared header. Nil when no
	// suggestion was derived.
	SuggestedHeaders []string

	// ShouldRename is set when SuggestedHeaders are worth surfacing. The
	// original header is never silently overridden.
	ShouldRename bool
}

// minSuggestLen is the shortest metadata cell content considered meaningful
// enough to contribute to a suggested header name.
const minSuggestLen = 3

// Detect scans the first rows of the first batch (at most h.MetadataLookback
// of them) against the declared header.
//
// A row is flagged as metadata when:
//
//	(a) it is entirely empty, or
//	(b) its numeric fraction is below h.MetadataLowNumeric while the next
//	    row's numeric fraction is above h.MetadataHighNumeric (a clear
//	    text-to-numeric transition), or
//	(c) its cells are textually identical to the declared header (a
//	    repeated header block).
//
// Scanning stops at the first row that is not metadata. Short inputs are
// handled by scanning whatever is available; Detect never fails.
func Detect(header []string, rows [][]string, h config.Heuristics) Result {
	res := Result{}
	limit := h.MetadataLookback
	if limit <= 0 {
		limit = 5
	}
	if limit > len(rows) {
		limit = len(rows)
	}

	// transitionAhead reports whether, looking forward from row i, the next
	// substantive row that breaks the low-numeric run is clearly numeric.
	// This is what makes a run of stacked text rows count as metadata: each
	// of them sits on the text side of one text-to-numeric transition.
	transitionAhead := func(i int) bool {
		for j := i + 1; j <= limit && j < len(rows); j++ {
			if isEmptyRow(rows[j]) {
				continue
			}
			f := numericFraction(rows[j])
			if f > h.MetadataHighNumeric {
				return true
			}
			if f >= h.MetadataLowNumeric {
				return false // ambiguous row; be conservative
			}
		}
		return false
	}

	for i := 0; i < limit; i++ {
		row := rows[i]
		switch {
		case isEmptyRow(row):
			res.MetadataRows++
			continue
		case sameAsHeader(row, header):
			res.MetadataRows++
			continue
		case numericFraction(row) < h.MetadataLowNumeric && transitionAhead(i):
			res.MetadataRows++
			maybeSuggest(&res, header, row)
			continue
		}
		break
	}
	res.DataStart = res.MetadataRows
	return res
}

// maybeSuggest offers a metadata row's values as enhanced column names when
// the row carries long-enough string content. Names are an underscore join of
// the original header and the metadata cell.
func maybeSuggest(res *Result, header, row []string) {
	if res.SuggestedHeaders != nil {
		return // first qualifying row wins
	}
	meaningful := 0
	for _, cell := range row {
		if len(strings.TrimSpace(cell)) >= minSuggestLen {
			meaningful++
		}
	}
	if meaningful*2 < len(row) {
		return
	}
	suggested := make([]string, len(header))
	for i := range header {
		cell := ""
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}
		if len(cell) >= minSuggestLen {
			suggested[i] = header[i] + "_" + cell
		} else {
			suggested[i] = header[i]
		}
	}
	res.SuggestedHeaders = suggested
	res.ShouldRename = true
}

// numericFraction returns the fraction of non-empty cells that parse as
// numbers. A row with no non-empty cells scores 0.
func numericFraction(row []string) float64 {
	nonEmpty, numeric := 0, 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err == nil {
			numeric++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(numeric) / float64(nonEmpty)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sameAsHeader(row, header []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i := range row {
		if strings.TrimSpace(row[i]) != strings.TrimSpace(header[i]) {
			return false
		}
	}
	return true
}
