package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one dated transactional row.
type Record struct {
	Date     time.Time
	Value    decimal.NullDecimal
	Category string
}

// AggregatePoint is the accumulated value of one (period, category) pair.
type AggregatePoint struct {
	Period   PeriodKey
	Category string
	Value    float64
}

// ValueSelector extracts a record's contribution. It must never fail; a
// missing value contributes zero.
type ValueSelector func(Record) decimal.Decimal

// CategorySelector extracts a record's category.
type CategorySelector func(Record) string

// Total contributes the record's value, or zero when the value is null.
func Total(r Record) decimal.Decimal {
	if !r.Value.Valid {
		return decimal.Zero
	}
	return r.Value.Decimal
}

// Count contributes one per record.
func Count(Record) decimal.Decimal {
	return decimal.NewFromInt(1)
}

// ByCategory groups by the record's own category field.
func ByCategory(r Record) string {
	return r.Category
}

// Aggregator buckets records into periods of one granularity, reading every
// timestamp in a single location.
type Aggregator struct {
	Granularity Granularity
	Location    *time.Location
}

// NewAggregator returns an aggregator; a nil location means UTC.
func NewAggregator(g Granularity, loc *time.Location) Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return Aggregator{Granularity: g, Location: loc}
}

type pointKey struct {
	period   PeriodKey
	category string
}

// Aggregate sums value(record) per (period, category). A nil category selector
// puts every record in one implicit category. Output is ordered by period, then
// category.
func (a Aggregator) Aggregate(records []Record, value ValueSelector, category CategorySelector) []AggregatePoint {
	if value == nil {
		value = Total
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}

	sums := make(map[pointKey]decimal.Decimal)
	for _, rec := range records {
		key := pointKey{period: Bucket(rec.Date.In(loc), a.Granularity)}
		if category != nil {
			key.category = category(rec)
		}
		sums[key] = sums[key].Add(value(rec))
	}

	return sortedPoints(sums)
}

// AggregateDayCounts rolls per-day occupancy counts (keyed by DayLayout) up to
// periods.
func (a Aggregator) AggregateDayCounts(days map[string]int) ([]AggregatePoint, error) {
	sums := make(map[pointKey]decimal.Decimal)
	for day, count := range days {
		d, err := time.Parse(DayLayout, day)
		if err != nil {
			return nil, &ValidationError{Field: "day", Reason: "malformed day key " + day}
		}
		key := pointKey{period: Bucket(d, a.Granularity)}
		sums[key] = sums[key].Add(decimal.NewFromInt(int64(count)))
	}
	return sortedPoints(sums), nil
}

func sortedPoints(sums map[pointKey]decimal.Decimal) []AggregatePoint {
	points := make([]AggregatePoint, 0, len(sums))
	for key, sum := range sums {
		points = append(points, AggregatePoint{
			Period:   key.period,
			Category: key.category,
			Value:    sum.InexactFloat64(),
		})
	}
	SortPoints(points)
	return points
}

// SortPoints orders points by period, then category.
func SortPoints(points []AggregatePoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Period != points[j].Period {
			return points[i].Period < points[j].Period
		}
		return points[i].Category < points[j].Category
	})
}
