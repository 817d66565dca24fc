package changelist

import (
	"github.com/ignite/unitchange-alerts/internal/domain"
)

// Subset is the slice of a log selected for one recipient, projected onto
// the configured report columns. Events is a fresh slice; the underlying
// source rows are shared and must not be modified.
type Subset struct {
	Columns []string
	Events  []domain.Event

	src []int
}

// Len returns the number of selected events.
func (s *Subset) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// Has reports whether col survived projection (case-insensitive).
func (s *Subset) Has(col string) bool {
	return s != nil && domain.Table{Columns: s.Columns}.Resolve(col) >= 0
}

// Row returns the projected cells of event i, in Columns order.
func (s *Subset) Row(i int) []any {
	ev := s.Events[i]
	out := make([]any, len(s.src))
	for j, c := range s.src {
		out[j] = ev.Value(c)
	}
	return out
}

// Filter returns a new subset with the same projection holding only the
// events for which keep returns true.
func (s *Subset) Filter(keep func(domain.Event) bool) *Subset {
	out := &Subset{Columns: s.Columns, src: s.src}
	for _, ev := range s.Events {
		if keep(ev) {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

// WithEvents returns a subset sharing s's projection over events.
func (s *Subset) WithEvents(events []domain.Event) *Subset {
	return &Subset{Columns: s.Columns, Events: events, src: s.src}
}
