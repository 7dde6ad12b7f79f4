// Package source resolves input locators into byte-stream sources.
//
// A locator is either a local path (plain or file://) or a remote http(s)://
// URL. Resolve returns the matching implementation; callers hold the Source
// interface and never inspect the locator themselves.
//
// Known-incompatible binary formats (parquet, xlsx/zip archives, gzip) are
// rejected at open time with ErrUnsupportedFormat rather than being handed to
// the text parsers.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat marks sources whose leading bytes identify a binary
// format this engine does not parse as delimited text.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Source is a restartable byte-stream input. Open always starts from the
// beginning of the underlying data; there is no mid-stream resume.
type Source interface {
	// Open returns a fresh reader over the full source.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Locator returns the original locator for error messages and reports.
	Locator() string
}

// Peeker is implemented by sources that can fetch a bounded prefix cheaply
// (Range requests for HTTP, a limited read for files). It is used by sampling
// probes.
type Peeker interface {
	Peek(ctx context.Context, n int) ([]byte, error)
}

// Resolve maps a locator onto a concrete Source.
func Resolve(locator string) (Source, error) {
	loc := strings.TrimSpace(locator)
	switch {
	case loc == "":
		return nil, fmt.Errorf("empty source locator")
	case strings.HasPrefix(loc, "file://"):
		return NewLocal(strings.TrimPrefix(loc, "file://")), nil
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return NewRemote(loc, ClientConfig{}), nil
	case strings.Contains(loc, "://"):
		return nil, fmt.Errorf("unsupported locator scheme in %q", loc)
	default:
		return NewLocal(loc), nil
	}
}

// magic numbers of binary formats we refuse to parse as text.
var binaryMagics = []struct {
	prefix []byte
	name   string
}{
	{[]byte("PAR1"), "parquet"},
	{[]byte{'P', 'K', 0x03, 0x04}, "zip archive (xlsx/ods?)"},
	{[]byte{0x1f, 0x8b}, "gzip"},
	{[]byte{0xd0, 0xcf, 0x11, 0xe0}, "OLE2 document (xls/doc)"},
	{[]byte("SQLite format 3"), "sqlite database"},
}

// CheckFormat inspects the leading bytes of a source and returns a wrapped
// ErrUnsupportedFormat when they identify a known binary format.
func CheckFormat(locator string, head []byte) error {
	for _, m := range binaryMagics {
		if len(head) >= len(m.prefix) && string(head[:len(m.prefix)]) == string(m.prefix) {
			return fmt.Errorf("%s looks like %s: %w", locator, m.name, ErrUnsupportedFormat)
		}
	}
	return nil
}
