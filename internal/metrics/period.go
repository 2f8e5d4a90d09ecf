package metrics

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the calendar span of a period.
type Granularity int

const (
	Month Granularity = iota
	Year
)

// PeriodKey identifies a bucket: "YYYY-MM" for months, "YYYY" for years.
// Lexicographic order equals chronological order.
type PeriodKey string

// ParseGranularity accepts the query spellings used by the API. Empty means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "month":
		return Month, nil
	case "yearly", "year":
		return Year, nil
	default:
		return Month, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown granularity %q (want monthly or yearly)", s)}
	}
}

func (g Granularity) String() string {
	if g == Year {
		return "yearly"
	}
	return "monthly"
}

// Bucket maps t to its period key using t's own calendar fields. Callers must
// place every record of one run in the same location first; mixing zones moves
// records near a boundary into the adjacent bucket.
func Bucket(t time.Time, g Granularity) PeriodKey {
	if g == Year {
		return PeriodKey(fmt.Sprintf("%04d", t.Year()))
	}
	return PeriodKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// ParsePeriod returns the first day of the period in UTC.
func ParsePeriod(key PeriodKey, g Granularity) (time.Time, error) {
	layout := "2006-01"
	if g == Year {
		layout = "2006"
	}
	t, err := time.Parse(layout, string(key))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("malformed %s period %q", g, key)}
	}
	return t, nil
}

// NextPeriod advances key by n periods.
func NextPeriod(key PeriodKey, g Granularity, n int) (PeriodKey, error) {
	start, err := ParsePeriod(key, g)
	if err != nil {
		return "", err
	}
	if g == Year {
		return Bucket(start.AddDate(n, 0, 0), g), nil
	}
	return Bucket(start.AddDate(0, n, 0), g), nil
}

// DaysInPeriod returns the calendar length of the period, honouring leap years.
func DaysInPeriod(key PeriodKey, g Granularity) (int, error) {
	start, err := ParsePeriod(key, g)
	if err != nil {
		return 0, err
	}
	var end time.Time
	if g == Year {
		end = start.AddDate(1, 0, 0)
	} else {
		end = start.AddDate(0, 1, 0)
	}
	return int(end.Sub(start).Hours() / 24), nil
}
