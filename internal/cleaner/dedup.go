package cleaner

import (
	"time"

	"github.com/zeebo/xxh3"

	"scrub/internal/coerce"
	"scrub/internal/table"
)

// cellBytes appends the canonical byte form of one cell plus a separator to
// buf. Cells of different types cannot collide within a column because a
// column holds a single kind.
func cellBytes(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		buf = append(buf, 0x00)
	case string:
		buf = append(buf, x...)
	case bool:
		if x {
			buf = append(buf, 't')
		} else {
			buf = append(buf, 'f')
		}
	case float64:
		buf = append(buf, coerce.Render(x)...)
	case time.Time:
		buf = append(buf, coerce.RenderTime(x)...)
	}
	return append(buf, 0x1f)
}

// dropDuplicateRows removes exact duplicate rows in place, keeping the first
// occurrence, and returns the number of rows dropped. Rows are matched by a
// 64-bit content hash with a full-row comparison on hash collision.
func dropDuplicateRows(t *table.Table) int {
	n := t.NumRows()
	if n < 2 {
		return 0
	}

	seen := make(map[uint64][]int, n)
	keep := make([]int, 0, n)
	dropped := 0
	buf := make([]byte, 0, 256)

	for i := 0; i < n; i++ {
		buf = buf[:0]
		for _, col := range t.Cols {
			buf = cellBytes(buf, col.Values[i])
		}
		h := xxh3.Hash(buf)

		dup := false
		for _, j := range seen[h] {
			if rowsEqual(t, i, j) {
				dup = true
				break
			}
		}
		if dup {
			dropped++
			continue
		}
		seen[h] = append(seen[h], i)
		keep = append(keep, i)
	}

	if dropped == 0 {
		return 0
	}
	for ci := range t.Cols {
		vals := t.Cols[ci].Values
		out := make([]any, 0, len(keep))
		for _, i := range keep {
			out = append(out, vals[i])
		}
		t.Cols[ci].Values = out
	}
	return dropped
}

func rowsEqual(t *table.Table, i, j int) bool {
	for _, col := range t.Cols {
		if !cellsEqual(col.Values[i], col.Values[j]) {
			return false
		}
	}
	return true
}

func cellsEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// dropEmptyColumns removes columns whose every value is NULL and returns
// their names.
func dropEmptyColumns(t *table.Table) []string {
	var dropped []string
	for _, name := range t.Names() {
		col := t.Column(name)
		empty := true
		for _, v := range col.Values {
			if v != nil {
				empty = false
				break
			}
		}
		if empty {
			t.DropColumn(name)
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// dropDuplicateColumns removes columns whose contents are identical to an
// earlier column, keeping the leftmost, and returns the dropped names.
func dropDuplicateColumns(t *table.Table) []string {
	var dropped []string
	hashes := make(map[uint64][]string)
	buf := make([]byte, 0, 1024)

	for _, name := range t.Names() {
		col := t.Column(name)
		if col == nil {
			continue
		}
		buf = buf[:0]
		for _, v := range col.Values {
			buf = cellBytes(buf, v)
		}
		h := xxh3.Hash(buf)

		dup := false
		for _, prev := range hashes[h] {
			if columnsEqual(col, t.Column(prev)) {
				dup = true
				break
			}
		}
		if dup {
			t.DropColumn(name)
			dropped = append(dropped, name)
			continue
		}
		hashes[h] = append(hashes[h], name)
	}
	return dropped
}

func columnsEqual(a, b *table.Column) bool {
	if b == nil || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if !cellsEqual(a.Values[i], b.Values[i]) {
			return false
		}
	}
	return true
}
