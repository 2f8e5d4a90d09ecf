package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/series"
	"hotel-metrics/internal/service"
	"hotel-metrics/internal/storage"
)

const dsLayout = "2006-01-02"

type salesPoint struct {
	Period     string  `json:"period"`
	TotalSales float64 `json:"totalSales"`
}

type occupancyPoint struct {
	DS           string  `json:"ds"`
	Y            float64 `json:"y"`
	IsHistorical bool    `json:"isHistorical"`
}

type eventPoint struct {
	DS           string  `json:"ds"`
	Y            float64 `json:"y"`
	EventType    string  `json:"event_type"`
	IsHistorical bool    `json:"isHistorical"`
}

type forecastRequest struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) salesHandler(line storage.SalesLine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		q, err := buildQuery(query.Get("type"), query.Get("from"), query.Get("to"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		points, err := h.pipelines.Sales(r.Context(), line, q)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		out := make([]salesPoint, 0, len(points))
		for _, p := range points {
			out = append(out, salesPoint{Period: string(p.Period), TotalSales: p.Value})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleManagerForecast handles POST /manager_forecast: occupancy history plus forecast.
func (h *Handler) HandleManagerForecast(w http.ResponseWriter, r *http.Request) {
	q, err := decodeForecastRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	points, err := h.pipelines.OccupancyForecast(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]occupancyPoint, 0, len(points))
	for _, p := range points {
		out = append(out, occupancyPoint{DS: p.DS.Format(dsLayout), Y: p.Y, IsHistorical: p.IsHistorical})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleEventForecast handles POST /event_forecast: bookings per event type plus forecast.
func (h *Handler) HandleEventForecast(w http.ResponseWriter, r *http.Request) {
	q, err := decodeForecastRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	points, err := h.pipelines.EventForecast(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventPoints(points))
}

func eventPoints(points []series.Point) []eventPoint {
	out := make([]eventPoint, 0, len(points))
	for _, p := range points {
		out = append(out, eventPoint{DS: p.DS.Format(dsLayout), Y: p.Y, EventType: p.Category, IsHistorical: p.IsHistorical})
	}
	return out
}

func decodeForecastRequest(r *http.Request) (service.Query, error) {
	var body forecastRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return service.Query{}, &metrics.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
		}
	}
	if t := r.URL.Query().Get("type"); t != "" && body.Type == "" {
		body.Type = t
	}
	return buildQuery(body.Type, body.From, body.To)
}

func buildQuery(granularity, from, to string) (service.Query, error) {
	g, err := metrics.ParseGranularity(granularity)
	if err != nil {
		return service.Query{}, err
	}
	q := service.Query{Granularity: g}
	if q.From, err = parseDate("from", from); err != nil {
		return service.Query{}, err
	}
	if q.To, err = parseDate("to", to); err != nil {
		return service.Query{}, err
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return service.Query{}, &metrics.ValidationError{Field: "from", Reason: "must be before to"}
	}
	return q, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{dsLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, &metrics.ValidationError{Field: field, Reason: "expected YYYY-MM-DD or RFC3339, got " + value}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &h.logger
	}

	var validation *metrics.ValidationError
	switch {
	case errors.As(err, &validation):
		logger.Debug().Err(err).Msg("rejected request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.Is(err, service.ErrInventoryUnknown):
		logger.Error().Err(err).Msg("room inventory not configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	case service.IsStoreError(err):
		logger.Error().Err(err).Msg("historical data unavailable")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load historical data"})
	default:
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
