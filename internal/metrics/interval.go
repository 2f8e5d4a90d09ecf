package metrics

import (
	"fmt"
	"time"
)

// DayLayout is the key format of ExpandIntervals output.
const DayLayout = "2006-01-02"

// MaxStayDays caps the nights a single stay may span.
const MaxStayDays = 366

// Interval is a stay from check-in to check-out, both calendar days.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Validate rejects stays that check out before they check in or that span
// more than MaxStayDays nights.
func (iv Interval) Validate() error {
	start, end := truncateDay(iv.Start), truncateDay(iv.End)
	if end.Before(start) {
		return &ValidationError{
			Field:  "interval",
			Reason: fmt.Sprintf("check-out %s precedes check-in %s", end.Format(DayLayout), start.Format(DayLayout)),
		}
	}
	if end.After(start.AddDate(0, 0, MaxStayDays)) {
		return &ValidationError{
			Field:  "interval",
			Reason: fmt.Sprintf("stay %s to %s exceeds %d nights", start.Format(DayLayout), end.Format(DayLayout), MaxStayDays),
		}
	}
	return nil
}

// ExpandIntervals counts occupied rooms per calendar day. Both the check-in and
// the check-out day count as occupied.
func ExpandIntervals(intervals []Interval) (map[string]int, error) {
	days := make(map[string]int)
	for _, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
		end := truncateDay(iv.End)
		for d := truncateDay(iv.Start); !d.After(end); d = d.AddDate(0, 0, 1) {
			days[d.Format(DayLayout)]++
		}
	}
	return days, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
