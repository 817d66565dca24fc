package domain

import "time"

// Change/error log columns recognized by the rule engine, the compiler and
// the sorter.
const (
	ColMake             = "MAKE"
	ColType             = "TYPE"
	ColDepartment       = "DEPARTMENT"
	ColGroupCode        = "GROUP_CODE"
	ColStatusChange     = "STATUS_CHANGE"
	ColPreviousBranch   = "PREVIOUS_BRANCH"
	ColCurrentBranch    = "CURRENT_BRANCH"
	ColStatus           = "STATUS"
	ColEventTS          = "EVENT_TS"
	ColStockNumber      = "STOCK_NUMBER"
	ColSalespersonEmail = "SALESPERSON_EMAIL"
	ColPurchaserEmail   = "PURCHASER_EMAIL"
	ColEmail            = "EMAIL"
	ColSalesperson      = "SALESPERSON"
	ColPurchaser        = "PURCHASER"
	ColName             = "NAME"
)

var eventColumns = []string{
	ColMake, ColType, ColDepartment, ColGroupCode, ColStatusChange,
	ColPreviousBranch, ColCurrentBranch, ColStatus, ColEventTS, ColStockNumber,
	ColSalespersonEmail, ColPurchaserEmail, ColEmail,
	ColSalesperson, ColPurchaser, ColName,
}

// Event is one decoded row of the change or error log. Fields are the raw
// text of their columns ("" when the column is missing or NULL); the full
// source row is kept for report projection.
type Event struct {
	Make             string
	Type             string
	Department       string
	GroupCode        string
	StatusChange     string
	PreviousBranch   string
	CurrentBranch    string
	Status           string
	EventTS          time.Time
	HasEventTS       bool
	StockNumber      string
	SalespersonEmail string
	PurchaserEmail   string
	Email            string
	Salesperson      string
	Purchaser        string
	Name             string

	row []any
}

// Value returns the source cell at column index i, or nil.
func (e Event) Value(i int) any {
	if i < 0 || i >= len(e.row) {
		return nil
	}
	return e.row[i]
}

// Log is a decoded event table. Columns are resolved once, at decode time.
type Log struct {
	Columns []string
	Events  []Event
	index   map[string]int
}

// DecodeLog resolves the recognized columns of t (case-insensitively) and
// decodes every row into an Event. Source rows are shared, never modified.
func DecodeLog(t Table) *Log {
	l := &Log{
		Columns: append([]string(nil), t.Columns...),
		Events:  make([]Event, 0, len(t.Rows)),
		index:   make(map[string]int, len(eventColumns)),
	}
	for _, col := range eventColumns {
		if i := t.Resolve(col); i >= 0 {
			l.index[col] = i
		}
	}

	text := func(row []any, col string) string {
		i, ok := l.index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return Text(row[i])
	}

	for _, row := range t.Rows {
		ev := Event{
			Make:             text(row, ColMake),
			Type:             text(row, ColType),
			Department:       text(row, ColDepartment),
			GroupCode:        text(row, ColGroupCode),
			StatusChange:     text(row, ColStatusChange),
			PreviousBranch:   text(row, ColPreviousBranch),
			CurrentBranch:    text(row, ColCurrentBranch),
			Status:           text(row, ColStatus),
			StockNumber:      text(row, ColStockNumber),
			SalespersonEmail: text(row, ColSalespersonEmail),
			PurchaserEmail:   text(row, ColPurchaserEmail),
			Email:            text(row, ColEmail),
			Salesperson:      text(row, ColSalesperson),
			Purchaser:        text(row, ColPurchaser),
			Name:             text(row, ColName),
			row:              row,
		}
		if i, ok := l.index[ColEventTS]; ok && i < len(row) {
			ev.EventTS, ev.HasEventTS = ParseTimestamp(row[i])
		}
		l.Events = append(l.Events, ev)
	}
	return l
}

// Has reports whether a recognized column was present in the source table.
func (l *Log) Has(col string) bool {
	_, ok := l.index[col]
	return ok
}

// Len returns the number of events.
func (l *Log) Len() int { return len(l.Events) }

// Resolve returns the source index of column name (case-insensitive), or -1.
func (l *Log) Resolve(name string) int {
	return Table{Columns: l.Columns}.Resolve(name)
}
