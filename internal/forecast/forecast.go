package forecast

import (
	"context"
	"time"
)

// MinHistory is the fewest historical points the model can fit a trend to.
const MinHistory = 2

// Point is one historical observation sent to the forecasting service.
type Point struct {
	DS time.Time
	Y  float64
}

// Request asks for a forecast of one category's series.
type Request struct {
	Category string
	// ForecastType selects the model on the service side (?forecastType=).
	ForecastType string
	// CategoryField, when set, adds the category to every serialized point
	// under this JSON name.
	CategoryField string
	Points        []Point
}

// Status tags the result of a forecasting attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusNotFound
	StatusTransportError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusNotFound:
		return "not_found"
	case StatusTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// ReasonInsufficientData marks a category skipped for lack of history.
const ReasonInsufficientData = "insufficient-data"

// Outcome is the per-category result. Predictions are only set on success and
// start at the period after the last historical one.
type Outcome struct {
	Status      Status
	Predictions []float64
	Reason      string
	Err         error
}

// Succeeded reports whether predictions are usable.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Forecaster produces an outcome for one category. Implementations never
// return a Go error; failures are expressed through Outcome.Status.
type Forecaster interface {
	Forecast(ctx context.Context, req Request) Outcome
}

func skipped() Outcome {
	return Outcome{Status: StatusSkipped, Reason: ReasonInsufficientData}
}
