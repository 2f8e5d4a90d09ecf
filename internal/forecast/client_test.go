package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func twoPoints() []Point {
	return []Point{
		{DS: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Y: 10},
		{DS: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Y: 12},
	}
}

func TestClientSkipsShortSeries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
	out := c.Forecast(context.Background(), Request{Category: "wedding", Points: twoPoints()[:1]})
	if out.Status != StatusSkipped || out.Reason != ReasonInsufficientData {
		t.Fatalf("expected insufficient-data skip, got %+v", out)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("a skipped series must not reach the network")
	}
}

func TestClientSuccess(t *testing.T) {
	var received []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/forecast" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("forecastType"); got != "event" {
			t.Errorf("forecastType = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"yhat": 13.4, "ds": "2024-03-01"}, {"yhat": 14.6}})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL + "/", Timeout: time.Second, UserAgent: "test"}, testLogger())
	out := c.Forecast(context.Background(), Request{
		Category:      "wedding",
		ForecastType:  "event",
		CategoryField: "event_type",
		Points:        twoPoints(),
	})
	if !out.Succeeded() {
		t.Fatalf("expected success, got %+v", out)
	}
	if len(out.Predictions) != 2 || out.Predictions[0] != 13.4 || out.Predictions[1] != 14.6 {
		t.Fatalf("unexpected predictions %v", out.Predictions)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 serialized points, got %v", received)
	}
	if received[0]["ds"] != "2024-01-01" || received[0]["y"] != float64(10) || received[0]["event_type"] != "wedding" {
		t.Fatalf("unexpected payload %v", received[0])
	}
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no model"})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
	out := c.Forecast(context.Background(), Request{Category: "gala", Points: twoPoints()})
	if out.Status != StatusNotFound {
		t.Fatalf("expected not found, got %+v", out)
	}
}

func TestClientTransportErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		},
		"missing yhat": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"ds":"2024-03-01"}]`))
		},
	}
	for name, handler := range cases {
		srv := httptest.NewServer(handler)
		c := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: time.Second}, testLogger())
		out := c.Forecast(context.Background(), Request{Points: twoPoints()})
		srv.Close()
		if out.Status != StatusTransportError || out.Err == nil {
			t.Fatalf("%s: expected transport error, got %+v", name, out)
		}
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(ClientOptions{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, testLogger())
	start := time.Now()
	out := c.Forecast(context.Background(), Request{Points: twoPoints()})
	if out.Status != StatusTransportError {
		t.Fatalf("expected transport error on timeout, got %+v", out)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout was not enforced")
	}
}
