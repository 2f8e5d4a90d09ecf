package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SalesLine names a revenue-bearing business line.
type SalesLine string

const (
	LineRooms      SalesLine = "rooms"
	LineEvents     SalesLine = "events"
	LineRestaurant SalesLine = "restaurant"
	LineBar        SalesLine = "bar"
)

// SalesLines lists every line in report order.
var SalesLines = []SalesLine{LineRooms, LineEvents, LineRestaurant, LineBar}

// ParseSalesLine validates a line name.
func ParseSalesLine(s string) (SalesLine, error) {
	for _, line := range SalesLines {
		if string(line) == s {
			return line, nil
		}
	}
	return "", fmt.Errorf("unknown sales line %q", s)
}

// SaleRow is a dated revenue row. Category carries the event type for event
// bookings and is empty otherwise.
type SaleRow struct {
	Date     time.Time
	Total    decimal.NullDecimal
	Category string
}

// StayRow is the check-in/check-out pair of a room reservation.
type StayRow struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Filter restricts rows by status and by a half-open date window. From and To
// are midnights in the hotel's location; DATE columns compare against their
// calendar dates.
type Filter struct {
	Statuses []string
	From     *time.Time
	To       *time.Time
}
