// Package normalize produces the matching-time canonical view of a row
// used by the blocker and the pair scorer, without mutating the row's
// original values.
package normalize

import (
	"fmt"
	"strings"
)

// View is the canonicalized matching columns of one row: the column's
// canonical string value plus its precomputed length.
type View struct {
	Values  map[string]string
	Lengths map[string]int
}

// Canonical reduces an arbitrary column value to its matching form:
// null-or-missing becomes the empty string, otherwise the value is
// stringified, trimmed, and folded to upper case. Canonical is
// idempotent: Canonical(Canonical(x)) == Canonical(x).
func Canonical(v any) string {
	if v == nil {
		return ""
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// Row builds the normalized View of a record over the given matching
// columns (typically the union of a MatchConfig's fuzzy and exact
// columns).
func Row(rec map[string]any, columns []string) View {
	v := View{
		Values:  make(map[string]string, len(columns)),
		Lengths: make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		canon := Canonical(rec[col])
		v.Values[col] = canon
		v.Lengths[col] = len(canon)
	}
	return v
}

// Table normalizes every row of rows over columns, preserving row order
// and indexing.
func Table(rows []map[string]any, columns []string) []View {
	views := make([]View, len(rows))
	for i, rec := range rows {
		views[i] = Row(rec, columns)
	}
	return views
}
