package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Table is a query result with named columns. Cells hold whatever the
// driver scanned: nil, string, []byte, time.Time, or a numeric type.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Resolve returns the index of the first column whose name matches name
// case-insensitively (surrounding whitespace ignored), or -1.
func (t Table) Resolve(name string) int {
	want := strings.ToUpper(strings.TrimSpace(name))
	for i, c := range t.Columns {
		if strings.ToUpper(strings.TrimSpace(c)) == want {
			return i
		}
	}
	return -1
}

// Cell returns the value at row r, column c. Out-of-range columns (including
// c == -1 for an unresolved column) yield nil.
func (t Table) Cell(r, c int) any {
	if c < 0 || r < 0 || r >= len(t.Rows) || c >= len(t.Rows[r]) {
		return nil
	}
	return t.Rows[r][c]
}

// Text renders a cell value as display text. nil renders as "".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(DisplayTimeLayout)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// DisplayTimeLayout is how timestamps are rendered in reports.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order when a timestamp arrives as text.
// The dotted layout is the DB2 for i form returned by the dealer system.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02-15.04.05.999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp interprets a cell as a point in time. The second result is
// false for nil, blank, or unparsable input.
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case nil:
		return time.Time{}, false
	}
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
