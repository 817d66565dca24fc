package report

import (
	"sort"

	"github.com/ignite/unitchange-alerts/internal/changelist"
	"github.com/ignite/unitchange-alerts/internal/domain"
)

// SortForSend returns s ordered for the email: status rank descending, then
// newest EVENT_TS first with missing or unparsable timestamps last, then
// STOCK_NUMBER ascending. The sort is stable and s is not modified. When
// STATUS was not projected into s it is returned as is.
func SortForSend(rank StatusRank, s *changelist.Subset) *changelist.Subset {
	if s.Len() == 0 || !s.Has(domain.ColStatus) {
		return s
	}

	events := append([]domain.Event(nil), s.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return less(rank, events[i], events[j])
	})
	return s.WithEvents(events)
}

func less(rank StatusRank, a, b domain.Event) bool {
	if ra, rb := rank.Of(a.Status), rank.Of(b.Status); ra != rb {
		return ra > rb
	}
	if a.HasEventTS != b.HasEventTS {
		return a.HasEventTS
	}
	if a.HasEventTS && !a.EventTS.Equal(b.EventTS) {
		return a.EventTS.After(b.EventTS)
	}
	return a.StockNumber < b.StockNumber
}
