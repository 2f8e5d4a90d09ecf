package series

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"hotel-metrics/internal/forecast"
	"hotel-metrics/internal/metrics"
)

// Point is one chart-ready value.
type Point struct {
	DS           time.Time
	Y            float64
	Category     string
	IsHistorical bool
}

// Merger combines historical aggregates with forecast outcomes.
type Merger struct {
	granularity metrics.Granularity
	// roundForecast rounds predictions to integers for count-based series.
	roundForecast bool
	logger        zerolog.Logger
}

// NewMerger constructs a merger for one granularity.
func NewMerger(g metrics.Granularity, roundForecast bool, logger zerolog.Logger) *Merger {
	return &Merger{
		granularity:   g,
		roundForecast: roundForecast,
		logger:        logger.With().Str("component", "series_merger").Logger(),
	}
}

// Merge returns history followed by successful predictions as one series
// ordered by ds, then category, with history first on ties. Prediction i of a
// category lands i periods after the result's anchor.
func (m *Merger) Merge(history []metrics.AggregatePoint, result forecast.Result) []Point {
	out := make([]Point, 0, len(history))
	for _, p := range history {
		ds, err := metrics.ParsePeriod(p.Period, m.granularity)
		if err != nil {
			m.logger.Warn().Err(err).Str("period", string(p.Period)).Msg("dropping historical point")
			continue
		}
		out = append(out, Point{
			DS:           ds,
			Y:            m.finite(p.Value, p.Category, p.Period),
			Category:     p.Category,
			IsHistorical: true,
		})
	}

	if result.Anchor != "" {
		for category, outcome := range result.Outcomes {
			if !outcome.Succeeded() {
				continue
			}
			for i, yhat := range outcome.Predictions {
				period, err := metrics.NextPeriod(result.Anchor, m.granularity, i)
				if err != nil {
					m.logger.Warn().Err(err).Str("anchor", string(result.Anchor)).Msg("dropping forecast points")
					break
				}
				ds, _ := metrics.ParsePeriod(period, m.granularity)
				y := m.finite(yhat, category, period)
				if m.roundForecast {
					y = math.Round(y)
				}
				out = append(out, Point{DS: ds, Y: y, Category: category})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DS.Equal(out[j].DS) {
			return out[i].DS.Before(out[j].DS)
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].IsHistorical && !out[j].IsHistorical
	})
	return out
}

func (m *Merger) finite(v float64, category string, period metrics.PeriodKey) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		m.logger.Warn().Str("category", category).Str("period", string(period)).Msg("non-finite value replaced with 0")
		return 0
	}
	return v
}
