package reader

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// encodingCandidate is one entry in the ordered encoding fallback list.
//
// accepts runs against a sampled prefix of the source and decides whether the
// candidate is plausible at all; decode wraps the raw stream. The first
// candidate whose accepts passes AND whose engine produces a batch is
// committed for the remainder of the stream.
type encodingCandidate struct {
	name    string
	accepts func(head []byte) bool
	decode  func(r io.Reader) io.Reader
}

var utf16BOMs = [][]byte{{0xff, 0xfe}, {0xfe, 0xff}}

// encodingCandidates returns the ordered fallback list:
//
//  1. utf-8        — strict; rejected when the sampled prefix is not valid UTF-8
//  2. utf-16-bom   — only when the prefix carries a UTF-16 byte-order mark
//  3. windows-1252 — permissive single-byte fallback; accepts anything
//
// A forced encoding name collapses the list to that one candidate.
func encodingCandidates(forced string) []encodingCandidate {
	all := []encodingCandidate{
		{
			name: "utf-8",
			accepts: func(head []byte) bool {
				// The sample may end mid-rune; a multi-byte rune is at most
				// 4 bytes, so trim up to 3 trailing bytes looking for a clean
				// boundary before declaring the data not UTF-8.
				for i := 0; i < 3 && len(head) > 0 && !utf8.Valid(head); i++ {
					head = head[:len(head)-1]
				}
				return utf8.Valid(head)
			},
			decode: func(r io.Reader) io.Reader {
				// Strips a leading BOM when present; otherwise passthrough.
				return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
			},
		},
		{
			name: "utf-16-bom",
			accepts: func(head []byte) bool {
				for _, bom := range utf16BOMs {
					if bytes.HasPrefix(head, bom) {
						return true
					}
				}
				return false
			},
			decode: func(r io.Reader) io.Reader {
				dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
				return transform.NewReader(r, dec)
			},
		},
		{
			name:    "windows-1252",
			accepts: func([]byte) bool { return true },
			decode: func(r io.Reader) io.Reader {
				return transform.NewReader(r, charmap.Windows1252.NewDecoder())
			},
		},
	}
	if forced == "" {
		return all
	}
	for _, c := range all {
		if c.name == forced {
			c.accepts = func([]byte) bool { return true }
			return []encodingCandidate{c}
		}
	}
	// Unknown forced name: keep the full chain rather than failing here; the
	// config validator warns about it separately.
	return all
}
