package table

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a stable hash of the table's column names in order.
// Two cleaning runs that produce the same fingerprint produced structurally
// identical output (same columns, same order), regardless of row content.
//
// Names are joined with an unlikely separator so that ("ab","c") and
// ("a","bc") hash differently.
func (t *Table) Fingerprint() string {
	var b strings.Builder
	for i, c := range t.Cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(c.Name)
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}
