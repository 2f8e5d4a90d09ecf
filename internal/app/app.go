package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hotel-metrics/internal/api"
	"hotel-metrics/internal/config"
	"hotel-metrics/internal/forecast"
	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/service"
	"hotel-metrics/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newOrchestrator() *forecast.Orchestrator {
	client := forecast.NewClient(forecast.ClientOptions{
		BaseURL:   a.Config.Forecast.BaseURL,
		Timeout:   a.Config.Forecast.RequestTimeout,
		UserAgent: a.Config.Forecast.UserAgent,
	}, a.Logger)
	return forecast.NewOrchestrator(client, a.Config.Forecast.MaxConcurrency, a.Logger)
}

func (a *App) newService(store service.Store) (*service.Service, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	return service.New(store, a.newOrchestrator(), service.Options{
		RoomInventory: a.Config.Hotel.RoomInventory,
		Location:      loc,
		Statuses:      a.Config.Hotel.CompletedStatuses,
	}, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Serve runs the HTTP API until SIGINT/SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := a.newService(store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(svc, a.Logger), a.Logger),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Logger.Error().Err(err).Msg("http server terminated with error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	a.Logger.Info().Msg("http server stopped")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 15 * time.Second
}

// QueryOptions are the shared --type/--from/--to flags.
type QueryOptions struct {
	Type string
	From *time.Time
	To   *time.Time
}

func (o QueryOptions) query() (service.Query, error) {
	g, err := metrics.ParseGranularity(o.Type)
	if err != nil {
		return service.Query{}, err
	}
	if o.From != nil && o.To != nil && !o.From.Before(*o.To) {
		return service.Query{}, errors.New("--from must be before --to")
	}
	return service.Query{Granularity: g, From: o.From, To: o.To}, nil
}

// ReportOptions configure the report command.
type ReportOptions struct {
	QueryOptions
}

// ExportOptions configure the export command.
type ExportOptions struct {
	QueryOptions
	Metric  string
	CSVPath string
	PNGPath string
}
