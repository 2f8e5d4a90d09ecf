package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotel-metrics/internal/forecast"
	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/series"
	"hotel-metrics/internal/storage"
)

const (
	forecastTypeOccupancy = "occupancy"
	forecastTypeEvent     = "event"
	eventCategoryField    = "event_type"
)

// Store is the read capability the pipelines need from the hotel database.
type Store interface {
	storage.SalesStore
	storage.OccupancyStore
	storage.EventStore
}

// StoreError marks a failure to read historical data. It is the only error
// that fails a whole request.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrInventoryUnknown is returned when no room inventory is configured and the
// rooms table is empty.
var ErrInventoryUnknown = errors.New("room inventory unknown: set hotel.room_inventory or populate the rooms table")

// Options carries explicit per-deployment settings.
type Options struct {
	// RoomInventory of zero means the rooms table is counted per request.
	RoomInventory int
	Location      *time.Location
	Statuses      []string
}

// Query narrows a pipeline run to a granularity and an optional date window.
// Only the calendar dates of From and To are used; they are read as days in
// the hotel's location.
type Query struct {
	Granularity metrics.Granularity
	From        *time.Time
	To          *time.Time
}

// Service runs the aggregation and forecasting pipelines.
type Service struct {
	store        Store
	orchestrator *forecast.Orchestrator
	opts         Options
	logger       zerolog.Logger
}

// New constructs the pipeline service.
func New(store Store, orchestrator *forecast.Orchestrator, opts Options, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:        store,
		orchestrator: orchestrator,
		opts:         opts,
		logger:       logger.With().Str("component", "service").Logger(),
	}
}

func (s *Service) filter(q Query) storage.Filter {
	return storage.Filter{Statuses: s.opts.Statuses, From: s.localDay(q.From), To: s.localDay(q.To)}
}

// localDay maps a window bound to local midnight of the date it was written as.
func (s *Service) localDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := s.calendarDay(*t)
	return &day
}

// Sales sums one business line's completed totals per period.
func (s *Service) Sales(ctx context.Context, line storage.SalesLine, q Query) ([]metrics.AggregatePoint, error) {
	rows, err := s.store.ListSales(ctx, line, s.filter(q))
	if err != nil {
		return nil, &StoreError{Op: fmt.Sprintf("list %s sales", line), Err: err}
	}

	var dateFn func(time.Time) time.Time
	if line == storage.LineEvents {
		dateFn = s.calendarDay
	}

	agg := metrics.NewAggregator(q.Granularity, s.opts.Location)
	return agg.Aggregate(saleRecords(rows, dateFn), metrics.Total, nil), nil
}

// SalesReport computes every business line for the same query.
func (s *Service) SalesReport(ctx context.Context, q Query) (map[storage.SalesLine][]metrics.AggregatePoint, error) {
	report := make(map[storage.SalesLine][]metrics.AggregatePoint, len(storage.SalesLines))
	for _, line := range storage.SalesLines {
		points, err := s.Sales(ctx, line, q)
		if err != nil {
			return nil, err
		}
		report[line] = points
	}
	return report, nil
}

// OccupancyForecast returns historical occupancy rates per period followed by
// forecast rates.
func (s *Service) OccupancyForecast(ctx context.Context, q Query) ([]series.Point, error) {
	history, err := s.OccupancyHistory(ctx, q)
	if err != nil {
		return nil, err
	}

	result := s.orchestrator.Run(ctx, forecast.RunSpec{
		Granularity:  q.Granularity,
		ForecastType: forecastTypeOccupancy,
	}, history)

	merger := series.NewMerger(q.Granularity, false, s.logger)
	return merger.Merge(history, result), nil
}

// OccupancyHistory computes occupancy percentages per period.
func (s *Service) OccupancyHistory(ctx context.Context, q Query) ([]metrics.AggregatePoint, error) {
	filter := s.filter(q)
	stays, err := s.store.ListStays(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "list stays", Err: err}
	}

	inventory, err := s.roomInventory(ctx)
	if err != nil {
		return nil, err
	}

	intervals := make([]metrics.Interval, 0, len(stays))
	for _, stay := range stays {
		iv := metrics.Interval{Start: s.calendarDay(stay.CheckIn), End: s.calendarDay(stay.CheckOut)}
		if err := iv.Validate(); err != nil {
			s.logger.Warn().Err(err).
				Time("check_in", stay.CheckIn).
				Time("check_out", stay.CheckOut).
				Msg("skipping reservation with invalid stay")
			continue
		}
		intervals = append(intervals, iv)
	}

	days, err := metrics.ExpandIntervals(intervals)
	if err != nil {
		return nil, err
	}
	days = clipDays(days, filter.From, filter.To)

	agg := metrics.NewAggregator(q.Granularity, s.opts.Location)
	occupied, err := agg.AggregateDayCounts(days)
	if err != nil {
		return nil, err
	}
	if len(occupied) == 0 {
		return occupied, nil
	}
	return metrics.OccupancyRates(occupied, inventory, q.Granularity)
}

// EventForecast returns booking counts per period and event type followed by
// rounded forecast counts.
func (s *Service) EventForecast(ctx context.Context, q Query) ([]series.Point, error) {
	rows, err := s.store.ListEventBookings(ctx, s.filter(q))
	if err != nil {
		return nil, &StoreError{Op: "list event bookings", Err: err}
	}

	agg := metrics.NewAggregator(q.Granularity, s.opts.Location)
	history := agg.Aggregate(saleRecords(rows, s.calendarDay), metrics.Count, metrics.ByCategory)

	result := s.orchestrator.Run(ctx, forecast.RunSpec{
		Granularity:   q.Granularity,
		ForecastType:  forecastTypeEvent,
		CategoryField: eventCategoryField,
	}, history)

	merger := series.NewMerger(q.Granularity, true, s.logger)
	return merger.Merge(history, result), nil
}

func (s *Service) roomInventory(ctx context.Context) (int, error) {
	if s.opts.RoomInventory > 0 {
		return s.opts.RoomInventory, nil
	}
	count, err := s.store.CountRooms(ctx)
	if err != nil {
		return 0, &StoreError{Op: "count rooms", Err: err}
	}
	if count <= 0 {
		return 0, ErrInventoryUnknown
	}
	return count, nil
}

// calendarDay re-anchors a DATE column, scanned as UTC midnight, to the same
// calendar day in the hotel's location.
func (s *Service) calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
}

func saleRecords(rows []storage.SaleRow, dateFn func(time.Time) time.Time) []metrics.Record {
	records := make([]metrics.Record, 0, len(rows))
	for _, row := range rows {
		date := row.Date
		if dateFn != nil {
			date = dateFn(date)
		}
		records = append(records, metrics.Record{Date: date, Value: row.Total, Category: row.Category})
	}
	return records
}

// clipDays drops occupied days outside [from, to). Bounds are local midnights.
func clipDays(days map[string]int, fromDay, toDay *time.Time) map[string]int {
	if fromDay == nil && toDay == nil {
		return days
	}
	var from, to string
	if fromDay != nil {
		from = fromDay.Format(metrics.DayLayout)
	}
	if toDay != nil {
		to = toDay.Format(metrics.DayLayout)
	}
	for day := range days {
		if (from != "" && day < from) || (to != "" && day >= to) {
			delete(days, day)
		}
	}
	return days
}

// IsStoreError reports whether err came from the historical data store.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
