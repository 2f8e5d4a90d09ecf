package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listRoomSalesSQL = `SELECT
        reserved_at,
        total_price::text,
        ''
    FROM reservations
    WHERE status = ANY($1)
      AND ($2::timestamptz IS NULL OR reserved_at >= $2)
      AND ($3::timestamptz IS NULL OR reserved_at < $3)
    ORDER BY reserved_at;`

	listEventSalesSQL = `SELECT
        event_date::timestamp,
        total_price::text,
        COALESCE(event_type, '')
    FROM event_bookings
    WHERE status = ANY($1)
      AND ($2::date IS NULL OR event_date >= $2::date)
      AND ($3::date IS NULL OR event_date < $3::date)
    ORDER BY event_date;`

	listRestaurantSalesSQL = `SELECT
        ordered_at,
        total_price::text,
        ''
    FROM restaurant_orders
    WHERE status = ANY($1)
      AND ($2::timestamptz IS NULL OR ordered_at >= $2)
      AND ($3::timestamptz IS NULL OR ordered_at < $3)
    ORDER BY ordered_at;`

	listBarSalesSQL = `SELECT
        ordered_at,
        total_price::text,
        ''
    FROM bar_orders
    WHERE status = ANY($1)
      AND ($2::timestamptz IS NULL OR ordered_at >= $2)
      AND ($3::timestamptz IS NULL OR ordered_at < $3)
    ORDER BY ordered_at;`

	listStaysSQL = `SELECT
        check_in::timestamp,
        check_out::timestamp
    FROM reservations
    WHERE status = ANY($1)
      AND check_in IS NOT NULL
      AND check_out IS NOT NULL
      AND ($2::date IS NULL OR check_out >= $2::date)
      AND ($3::date IS NULL OR check_in < $3::date)
    ORDER BY check_in;`

	countRoomsSQL = `SELECT COUNT(*) FROM rooms;`
)

type windowKind int

const (
	// windowInstant compares timestamptz columns against the window bounds.
	windowInstant windowKind = iota
	// windowDay compares DATE columns against the bounds' calendar days.
	windowDay
)

type salesQuery struct {
	sql    string
	window windowKind
}

var salesQueries = map[SalesLine]salesQuery{
	LineRooms:      {sql: listRoomSalesSQL, window: windowInstant},
	LineEvents:     {sql: listEventSalesSQL, window: windowDay},
	LineRestaurant: {sql: listRestaurantSalesSQL, window: windowInstant},
	LineBar:        {sql: listBarSalesSQL, window: windowInstant},
}

// SalesStore reads revenue rows per business line.
type SalesStore interface {
	ListSales(ctx context.Context, line SalesLine, filter Filter) ([]SaleRow, error)
}

// OccupancyStore reads stays and the room inventory.
type OccupancyStore interface {
	ListStays(ctx context.Context, filter Filter) ([]StayRow, error)
	CountRooms(ctx context.Context) (int, error)
}

// EventStore reads event bookings with their type.
type EventStore interface {
	ListEventBookings(ctx context.Context, filter Filter) ([]SaleRow, error)
}

// Store aggregates read access to the hotel's transactional tables.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListSales lists completed revenue rows of one business line.
func (s *Store) ListSales(ctx context.Context, line SalesLine, filter Filter) ([]SaleRow, error) {
	query, ok := salesQueries[line]
	if !ok {
		return nil, fmt.Errorf("list sales: unknown line %q", line)
	}
	rows, err := s.query(ctx, query.sql, filter.args(query.window)...)
	if err != nil {
		return nil, fmt.Errorf("list %s sales: %w", line, err)
	}
	defer rows.Close()

	sales := make([]SaleRow, 0)
	for rows.Next() {
		sale, scanErr := scanSaleRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sales = append(sales, sale)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return sales, nil
}

// ListEventBookings lists completed event bookings with their event type.
func (s *Store) ListEventBookings(ctx context.Context, filter Filter) ([]SaleRow, error) {
	return s.ListSales(ctx, LineEvents, filter)
}

// ListStays lists check-in/check-out pairs of completed reservations that
// overlap the filter window.
func (s *Store) ListStays(ctx context.Context, filter Filter) ([]StayRow, error) {
	rows, err := s.query(ctx, listStaysSQL, filter.args(windowDay)...)
	if err != nil {
		return nil, fmt.Errorf("list stays: %w", err)
	}
	defer rows.Close()

	stays := make([]StayRow, 0)
	for rows.Next() {
		var stay StayRow
		if err := rows.Scan(&stay.CheckIn, &stay.CheckOut); err != nil {
			return nil, err
		}
		stays = append(stays, stay)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stays, nil
}

// CountRooms counts the hotel's rooms.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRoomsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count rooms: %w", scanErr)
	}
	return int(count), nil
}

func (s *Store) query(ctx context.Context, sqlText string, args ...interface{}) (pgx.Rows, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sqlText, args...)
}

func (f Filter) args(kind windowKind) []interface{} {
	bound := nullableTime
	if kind == windowDay {
		bound = nullableDay
	}
	return []interface{}{f.Statuses, bound(f.From), bound(f.To)}
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// nullableDay keeps the calendar date of t as seen in t's own location.
func nullableDay(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scanSaleRow(rows pgx.Rows) (SaleRow, error) {
	var (
		date     time.Time
		totalStr sql.NullString
		category string
	)
	if err := rows.Scan(&date, &totalStr, &category); err != nil {
		return SaleRow{}, err
	}

	sale := SaleRow{Date: date, Category: category}
	if totalStr.Valid {
		total, err := decimal.NewFromString(totalStr.String)
		if err != nil {
			return SaleRow{}, fmt.Errorf("parse total price: %w", err)
		}
		sale.Total = decimal.NullDecimal{Decimal: total, Valid: true}
	}
	return sale, nil
}
