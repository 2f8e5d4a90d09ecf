package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OccupancyRates converts occupied-room-days per period into a percentage of
// available room-days: occupied / (inventory × days in that period) × 100.
func OccupancyRates(points []AggregatePoint, inventory int, g Granularity) ([]AggregatePoint, error) {
	if inventory <= 0 {
		return nil, &ValidationError{Field: "room_inventory", Reason: fmt.Sprintf("must be positive, got %d", inventory)}
	}

	rates := make([]AggregatePoint, 0, len(points))
	for _, p := range points {
		days, err := DaysInPeriod(p.Period, g)
		if err != nil {
			return nil, err
		}
		capacity := decimal.NewFromInt(int64(inventory) * int64(days))
		rate := decimal.NewFromFloat(p.Value).Div(capacity).Mul(hundred)
		rates = append(rates, AggregatePoint{
			Period:   p.Period,
			Category: p.Category,
			Value:    rate.InexactFloat64(),
		})
	}
	return rates, nil
}
