package catalog

import (
	"fmt"
	"strings"
)

// BuildQuery composes a bounded ADQL select over one source table. TOP is
// the ADQL row-limit clause; a non-positive limit means unbounded. The
// filter, when present, is inserted verbatim as the WHERE body.
func BuildQuery(table string, columns []string, limit int, filter string) string {
	var b strings.Builder

	b.WriteString("SELECT")
	if limit > 0 {
		fmt.Fprintf(&b, " TOP %d", limit)
	}
	b.WriteString(" ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	if filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(filter)
	}

	return b.String()
}
