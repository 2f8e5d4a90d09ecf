package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hotel-metrics/internal/forecast"
	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/series"
	"hotel-metrics/internal/service"
	"hotel-metrics/internal/storage"
)

type stubPipelines struct {
	sales     []metrics.AggregatePoint
	points    []series.Point
	err       error
	lastLine  storage.SalesLine
	lastQuery service.Query
}

func (s *stubPipelines) Sales(ctx context.Context, line storage.SalesLine, q service.Query) ([]metrics.AggregatePoint, error) {
	s.lastLine, s.lastQuery = line, q
	return s.sales, s.err
}

func (s *stubPipelines) OccupancyForecast(ctx context.Context, q service.Query) ([]series.Point, error) {
	s.lastQuery = q
	return s.points, s.err
}

func (s *stubPipelines) EventForecast(ctx context.Context, q service.Query) ([]series.Point, error) {
	s.lastQuery = q
	return s.points, s.err
}

func serve(t *testing.T, p Pipelines, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewHandler(p, zerolog.Nop()), zerolog.Nop())
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSalesEndpoints(t *testing.T) {
	routes := map[string]storage.SalesLine{
		"/room_sales":       storage.LineRooms,
		"/event_sales":      storage.LineEvents,
		"/restaurant_sales": storage.LineRestaurant,
		"/bar_sales":        storage.LineBar,
	}
	for path, line := range routes {
		stub := &stubPipelines{sales: []metrics.AggregatePoint{
			{Period: "2024-01", Value: 150},
			{Period: "2024-02", Value: 30},
		}}
		rec := serve(t, stub, http.MethodGet, path+"?type=monthly", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		if stub.lastLine != line {
			t.Fatalf("%s routed to %s", path, stub.lastLine)
		}

		var got []map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if len(got) != 2 || got[0]["period"] != "2024-01" || got[0]["totalSales"] != float64(150) {
			t.Fatalf("%s: unexpected body %v", path, got)
		}
	}
}

func TestSalesYearlyAndWindow(t *testing.T) {
	stub := &stubPipelines{}
	rec := serve(t, stub, http.MethodGet, "/bar_sales?type=yearly&from=2023-01-01&to=2024-01-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if stub.lastQuery.Granularity != metrics.Year {
		t.Fatal("yearly granularity not applied")
	}
	if stub.lastQuery.From == nil || !stub.lastQuery.From.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from not parsed: %v", stub.lastQuery.From)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty result must encode as [], got %q", rec.Body.String())
	}
}

func TestSalesRejectsBadParams(t *testing.T) {
	for _, target := range []string{
		"/room_sales?type=weekly",
		"/room_sales?from=yesterday",
		"/room_sales?from=2024-02-01&to=2024-01-01",
	} {
		rec := serve(t, &stubPipelines{}, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		var body map[string]string
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body["error"] == "" {
			t.Fatalf("%s: error message missing", target)
		}
	}
}

func TestStoreErrorIs500(t *testing.T) {
	stub := &stubPipelines{err: &service.StoreError{Op: "list stays", Err: errors.New("db down")}}
	rec := serve(t, stub, http.MethodPost, "/manager_forecast", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Fatalf("expected error body, got %v (%v)", body, err)
	}
}

func TestUnknownInventoryNamesSetting(t *testing.T) {
	rec := serve(t, &stubPipelines{err: service.ErrInventoryUnknown}, http.MethodPost, "/manager_forecast", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body["error"], "hotel.room_inventory") {
		t.Fatalf("error should point at the setting, got %q", body["error"])
	}
}

func TestManagerForecastShape(t *testing.T) {
	stub := &stubPipelines{points: []series.Point{
		{DS: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Y: 1, IsHistorical: true},
		{DS: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), Y: 2.5},
	}}
	rec := serve(t, stub, http.MethodPost, "/manager_forecast", `{"type":"monthly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected body %v", got)
	}
	if got[0]["ds"] != "2024-06-01" || got[0]["y"] != float64(1) || got[0]["isHistorical"] != true {
		t.Fatalf("historical point wrong: %v", got[0])
	}
	if got[1]["isHistorical"] != false || got[1]["y"] != 2.5 {
		t.Fatalf("forecast point wrong: %v", got[1])
	}
	if _, ok := got[0]["event_type"]; ok {
		t.Fatal("occupancy points carry no event_type")
	}
}

func TestEventForecastShapeAndBadBody(t *testing.T) {
	stub := &stubPipelines{points: []series.Point{
		{DS: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Y: 2, Category: "wedding", IsHistorical: true},
	}}
	rec := serve(t, stub, http.MethodPost, "/event_forecast", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got []map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if len(got) != 1 || got[0]["event_type"] != "wedding" {
		t.Fatalf("unexpected body %v", got)
	}

	rec = serve(t, stub, http.MethodPost, "/event_forecast", "{broken")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be 400, got %d", rec.Code)
	}
}

func TestHealthAndMethodNotAllowed(t *testing.T) {
	rec := serve(t, &stubPipelines{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	rec = serve(t, &stubPipelines{}, http.MethodGet, "/manager_forecast", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

type failingForecaster struct{}

func (failingForecaster) Forecast(ctx context.Context, req forecast.Request) forecast.Outcome {
	if req.Category == "conference" {
		return forecast.Outcome{Status: forecast.StatusTransportError, Err: errors.New("timeout")}
	}
	return forecast.Outcome{Status: forecast.StatusSuccess, Predictions: []float64{4}}
}

type eventOnlyStore struct{}

func (eventOnlyStore) ListSales(ctx context.Context, line storage.SalesLine, f storage.Filter) ([]storage.SaleRow, error) {
	return nil, nil
}

func (eventOnlyStore) ListEventBookings(ctx context.Context, f storage.Filter) ([]storage.SaleRow, error) {
	day := func(m time.Month) time.Time { return time.Date(2024, m, 3, 0, 0, 0, 0, time.UTC) }
	return []storage.SaleRow{
		{Date: day(1), Category: "conference"},
		{Date: day(2), Category: "conference"},
		{Date: day(1), Category: "wedding"},
		{Date: day(2), Category: "wedding"},
	}, nil
}

func (eventOnlyStore) ListStays(ctx context.Context, f storage.Filter) ([]storage.StayRow, error) {
	return nil, nil
}

func (eventOnlyStore) CountRooms(ctx context.Context) (int, error) {
	return 1, nil
}

func TestEventForecastPartialFailureEndToEnd(t *testing.T) {
	orch := forecast.NewOrchestrator(failingForecaster{}, 2, zerolog.Nop())
	svc := service.New(eventOnlyStore{}, orch, service.Options{Statuses: []string{"paid"}}, zerolog.Nop())

	rec := serve(t, svc, http.MethodPost, "/event_forecast", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("partial failure must still be 200, got %d", rec.Code)
	}
	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var forecasts []map[string]any
	for _, p := range got {
		if p["isHistorical"] == false {
			forecasts = append(forecasts, p)
		}
	}
	if len(got) != 5 || len(forecasts) != 1 {
		t.Fatalf("expected 4 historical + 1 forecast point, got %v", got)
	}
	if forecasts[0]["event_type"] != "wedding" || forecasts[0]["ds"] != "2024-03-01" {
		t.Fatalf("unexpected forecast point %v", forecasts[0])
	}
}
