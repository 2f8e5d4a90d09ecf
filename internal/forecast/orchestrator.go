package forecast

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hotel-metrics/internal/metrics"
)

// RunSpec configures one orchestrated forecast.
type RunSpec struct {
	Granularity   metrics.Granularity
	ForecastType  string
	CategoryField string
}

// Result holds every category's outcome and the shared first forecast period.
type Result struct {
	// Anchor is one period after the latest historical period across all
	// categories; empty when there was no history.
	Anchor   metrics.PeriodKey
	Outcomes map[string]Outcome
}

// Orchestrator fans a forecast out over every category of an aggregation.
// A failure in one category never affects another.
type Orchestrator struct {
	forecaster  Forecaster
	concurrency int
	logger      zerolog.Logger
}

// NewOrchestrator builds an orchestrator issuing at most concurrency calls at once.
func NewOrchestrator(forecaster Forecaster, concurrency int, logger zerolog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		forecaster:  forecaster,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "forecast_orchestrator").Logger(),
	}
}

type categoryJob struct {
	category string
	points   []Point
}

// Run forecasts each category of history and waits for all of them.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec, history []metrics.AggregatePoint) Result {
	result := Result{Outcomes: make(map[string]Outcome)}
	if len(history) == 0 {
		return result
	}

	grouped := make(map[string][]Point)
	var latest metrics.PeriodKey
	for _, p := range history {
		if p.Period > latest {
			latest = p.Period
		}
		ds, err := metrics.ParsePeriod(p.Period, spec.Granularity)
		if err != nil {
			o.logger.Warn().Err(err).Str("period", string(p.Period)).Msg("dropping point with malformed period")
			continue
		}
		grouped[p.Category] = append(grouped[p.Category], Point{DS: ds, Y: p.Value})
	}

	anchor, err := metrics.NextPeriod(latest, spec.Granularity, 1)
	if err != nil {
		o.logger.Warn().Err(err).Str("latest", string(latest)).Msg("cannot derive forecast anchor")
		return result
	}
	result.Anchor = anchor

	jobs := make([]categoryJob, 0, len(grouped))
	for category, points := range grouped {
		if len(points) < MinHistory {
			o.logger.Debug().Str("category", category).Int("history", len(points)).Msg("skipping forecast: insufficient data")
			result.Outcomes[category] = skipped()
			continue
		}
		sort.Slice(points, func(i, j int) bool { return points[i].DS.Before(points[j].DS) })
		jobs = append(jobs, categoryJob{category: category, points: points})
	}

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			outcomes[i] = o.forecaster.Forecast(ctx, Request{
				Category:      job.category,
				ForecastType:  spec.ForecastType,
				CategoryField: spec.CategoryField,
				Points:        job.points,
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, job := range jobs {
		outcome := outcomes[i]
		switch outcome.Status {
		case StatusNotFound:
			o.logger.Warn().Str("category", job.category).Err(outcome.Err).Msg("no forecast model for category")
		case StatusTransportError:
			o.logger.Warn().Str("category", job.category).Str("reason", outcome.Reason).Err(outcome.Err).Msg("forecast call failed")
		}
		result.Outcomes[job.category] = outcome
	}

	return result
}
