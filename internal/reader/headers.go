package reader

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
// The decoder already strips a real byte-level BOM; this catches the case
// where a BOM survived inside already-decoded text.
func stripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier suitable for reports and SQL sinks:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// resolveHeader normalizes raw header cells into unique column names,
// applying an optional header_map of original name → canonical name first.
// Collisions and empty names get positional suffixes so the Table invariant
// (no repeated names) always holds.
func resolveHeader(raw []string, headerMap map[string]string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if mapped, ok := headerMap[name]; ok && mapped != "" {
			name = mapped
		} else {
			name = NormalizeName(name)
		}
		base := name
		if n := seen[base]; n > 0 {
			name = fmt.Sprintf("%s_%d", base, n+1)
		}
		seen[base]++
		if name != base {
			seen[name]++
		}
		out[i] = name
	}
	return out
}

// syntheticHeader produces col_0..col_{n-1} for headerless inputs.
func syntheticHeader(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("col_%d", i)
	}
	return out
}
