package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	forecastPath = "/forecast"
	dsLayout     = "2006-01-02"
	maxBodyBytes = 4 << 20
)

// ClientOptions parameterise the forecasting service client.
type ClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client calls the external forecasting service.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a forecasting client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.Timeout = timeout

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "forecast_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Forecast requests predictions for one category's series.
func (c *Client) Forecast(ctx context.Context, req Request) Outcome {
	if len(req.Points) < MinHistory {
		return skipped()
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(encodePoints(req))
	if err != nil {
		return transportError(fmt.Errorf("marshal forecast payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.ForecastType), bytes.NewReader(body))
	if err != nil {
		return transportError(fmt.Errorf("create forecast request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		httpReq.Header.Set("User-Agent", ua)
	} else {
		httpReq.Header.Set("User-Agent", "hotelmetrics/1.0")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return transportError(fmt.Errorf("call forecast service: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(fmt.Errorf("read forecast response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Outcome{Status: StatusNotFound, Reason: "no trained model", Err: parseHTTPError(resp.StatusCode, payload)}
	case resp.StatusCode != http.StatusOK:
		return transportError(parseHTTPError(resp.StatusCode, payload))
	}

	var predictions []prediction
	if err := json.Unmarshal(payload, &predictions); err != nil {
		return transportError(fmt.Errorf("decode forecast response: %w", err))
	}

	values := make([]float64, 0, len(predictions))
	for i, p := range predictions {
		if p.YHat == nil {
			return transportError(fmt.Errorf("forecast response item %d has no yhat", i))
		}
		values = append(values, *p.YHat)
	}

	c.logger.Debug().Str("category", req.Category).Int("history", len(req.Points)).Int("predictions", len(values)).Msg("forecast received")
	return Outcome{Status: StatusSuccess, Predictions: values}
}

func (c *Client) endpoint(forecastType string) string {
	endpoint := c.baseURL + forecastPath
	if forecastType != "" {
		endpoint += "?" + url.Values{"forecastType": {forecastType}}.Encode()
	}
	return endpoint
}

func encodePoints(req Request) []map[string]any {
	out := make([]map[string]any, 0, len(req.Points))
	for _, p := range req.Points {
		item := map[string]any{
			"ds": p.DS.Format(dsLayout),
			"y":  p.Y,
		}
		if req.CategoryField != "" {
			item[req.CategoryField] = req.Category
		}
		out = append(out, item)
	}
	return out
}

type prediction struct {
	YHat *float64 `json:"yhat"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		for _, msg := range []string{apiErr.Error, apiErr.Message, apiErr.Detail} {
			if msg != "" {
				return fmt.Errorf("forecast api error (%d): %s", status, msg)
			}
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("forecast api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("forecast api error (%d)", status)
}

func transportError(err error) Outcome {
	reason := "request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	return Outcome{Status: StatusTransportError, Reason: reason, Err: err}
}

var _ Forecaster = (*Client)(nil)
