package reader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// errMalformedRow marks a single unusable row. The reader skips and counts
// these; they never abort the stream.
var errMalformedRow = errors.New("malformed row")

// errEngineUnsupported is a fatal per-engine signal: the engine cannot handle
// this input at all (e.g., the fast splitter meeting quoted fields). The
// reader moves on to the next engine in the candidate list.
var errEngineUnsupported = errors.New("engine cannot parse this input")

// engine turns a decoded text stream into rows. ReadRow returns io.EOF at end
// of stream, errMalformedRow (possibly wrapped) for skippable rows, and any
// other error as fatal for the current encoding×engine combination.
type engine interface {
	Name() string
	ReadRow() ([]string, error)
}

// engineFactory builds an engine over a decoded stream.
type engineFactory struct {
	name string
	open func(r io.Reader, delim rune) engine
}

// engineCandidates returns the ordered engine fallback list: the fast
// line-splitting engine first, the conservative encoding/csv engine second.
func engineCandidates() []engineFactory {
	return []engineFactory{
		{name: "split", open: newSplitEngine},
		{name: "csv", open: newCSVEngine},
	}
}

// splitEngine is the fast path: one row per line, fields split on the
// delimiter with no quote handling. The moment it sees a quote character it
// reports errEngineUnsupported so the conservative engine takes over —
// guessing at quoting semantics here would silently corrupt fields.
type splitEngine struct {
	sc    *bufio.Scanner
	delim string
}

func newSplitEngine(r io.Reader, delim rune) engine {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &splitEngine{sc: sc, delim: string(delim)}
}

func (e *splitEngine) Name() string { return "split" }

func (e *splitEngine) ReadRow() ([]string, error) {
	if !e.sc.Scan() {
		if err := e.sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := strings.TrimSuffix(e.sc.Text(), "\r")
	if strings.ContainsRune(line, '"') {
		return nil, errEngineUnsupported
	}
	return strings.Split(line, e.delim), nil
}

// csvEngine wraps encoding/csv configured for maximum leniency: lazy quotes,
// variable field counts, trimmed leading space. Per-row parse errors are
// downgraded to errMalformedRow; anything else is fatal.
type csvEngine struct {
	cr *csv.Reader
}

func newCSVEngine(r io.Reader, delim rune) engine {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // width is enforced by the reader, not the engine
	return &csvEngine{cr: cr}
}

func (e *csvEngine) Name() string { return "csv" }

func (e *csvEngine) ReadRow() ([]string, error) {
	rec, err := e.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, errMalformedRow
		}
		return nil, err
	}
	return rec, nil
}
