package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hotel-metrics/internal/logging"
	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/series"
	"hotel-metrics/internal/service"
	"hotel-metrics/internal/storage"
)

// Pipelines is the slice of the service the HTTP surface depends on.
type Pipelines interface {
	Sales(ctx context.Context, line storage.SalesLine, q service.Query) ([]metrics.AggregatePoint, error)
	OccupancyForecast(ctx context.Context, q service.Query) ([]series.Point, error)
	EventForecast(ctx context.Context, q service.Query) ([]series.Point, error)
}

// Handler serves the metrics endpoints.
type Handler struct {
	pipelines Pipelines
	logger    zerolog.Logger
}

// NewHandler constructs the API handler.
func NewHandler(pipelines Pipelines, logger zerolog.Logger) *Handler {
	return &Handler{pipelines: pipelines, logger: logger.With().Str("component", "api").Logger()}
}

// NewRouter mounts every route behind recovery and access logging.
func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.AccessLog(logger))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the metrics routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/room_sales", h.salesHandler(storage.LineRooms))
	r.Get("/event_sales", h.salesHandler(storage.LineEvents))
	r.Get("/restaurant_sales", h.salesHandler(storage.LineRestaurant))
	r.Get("/bar_sales", h.salesHandler(storage.LineBar))
	r.Post("/manager_forecast", h.HandleManagerForecast)
	r.Post("/event_forecast", h.HandleEventForecast)
}
