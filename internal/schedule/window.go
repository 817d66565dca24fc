// Package schedule works out how far back a scheduled run should look for
// changes, from the wall-clock time the run starts at.
package schedule

import "time"

// Kind names the run slot.
type Kind string

const (
	WeekendCatchUp Kind = "weekend-catch-up"
	MorningCatchUp Kind = "morning-catch-up"
	DayEnd         Kind = "day-end"
	Interval       Kind = "interval"
)

// Window is the slice of the change log a run reports on.
type Window struct {
	Kind     Kind
	Since    time.Time
	Lookback time.Duration
}

// ForTime classifies now (in loc) and returns the window it covers. The
// anchor is the start of the current local hour, moved to :30 for the
// morning slots; Since is the anchor minus the lookback.
//
//	Monday 09:xx      65h back from 09:30
//	other days 09:xx  17h back from 09:30
//	16:30             1h back from 16:00
//	anything else     4h back from the top of the hour
func ForTime(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)

	kind, back, minute := Interval, 4*time.Hour, 0
	switch {
	case local.Hour() == 9 && local.Weekday() == time.Monday:
		kind, back, minute = WeekendCatchUp, 65*time.Hour, 30
	case local.Hour() == 9:
		kind, back, minute = MorningCatchUp, 17*time.Hour, 30
	case local.Hour() == 16 && local.Minute() == 30:
		kind, back = DayEnd, time.Hour
	}

	anchor := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), minute, 0, 0, loc)
	return Window{Kind: kind, Since: anchor.Add(-back), Lookback: back}
}
