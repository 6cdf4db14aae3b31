package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pilgrimwatch/internal/logging"
	"pilgrimwatch/internal/telemetry"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewNormalisesBase(t *testing.T) {
	c, err := New("sim.local:5000/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BaseURL() != "http://sim.local:5000" {
		t.Fatalf("unexpected base %q", c.BaseURL())
	}
}

func TestStatusAndStatistics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		switch r.URL.Path {
		case "/api/status":
			w.Write([]byte(`{"running":true,"current_index":12,"total_records":300,"speed":2}`))
		case "/api/statistics":
			w.Write([]byte(`{"alerts":{"red":3,"orange":1,"yellow":2,"blue":0},"temperature":{"min":33.1,"max":47.5,"avg":38.2},"locations":{"Mina":7}}`))
		default:
			http.NotFound(w, r)
		}
	})
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Running || st.CurrentIndex != 12 || st.TotalRecords != 300 || st.Speed != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
	stats, err := c.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Alerts.Red != 3 || stats.Temperature.Max != 47.5 || stats.Locations["Mina"] != 7 {
		t.Fatalf("unexpected statistics %+v", stats)
	}
}

func TestTimelines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/temperature-timeline":
			w.Write([]byte(`{"timestamps":["08:00"],"avg_temps":[38],"max_temps":[41],"min_temps":[35]}`))
		case "/api/alerts-timeline":
			w.Write([]byte(`{"timestamps":["08:00"],"red":[1],"orange":[0],"yellow":[2]}`))
		}
	})
	tt, err := c.TemperatureTimeline(context.Background())
	if err != nil || len(tt.MaxTemps) != 1 || tt.MaxTemps[0] != 41 {
		t.Fatalf("TemperatureTimeline = %+v, %v", tt, err)
	}
	at, err := c.AlertsTimeline(context.Background())
	if err != nil || len(at.Yellow) != 1 || at.Yellow[0] != 2 {
		t.Fatalf("AlertsTimeline = %+v, %v", at, err)
	}
}

func TestControlSendsBodyAndRequestID(t *testing.T) {
	var got telemetry.ControlRequest
	var reqID, contentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/control" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		reqID = r.Header.Get("X-Request-ID")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"status":"ok","message":"speed set"}`))
	})
	speed := 5
	ack, err := c.Control(context.Background(), telemetry.ControlRequest{Action: telemetry.ActionSpeed, Value: &speed})
	if err != nil {
		t.Fatalf("Control: %v", err)
	}
	if got.Action != telemetry.ActionSpeed || got.Value == nil || *got.Value != 5 {
		t.Fatalf("unexpected body %+v", got)
	}
	if reqID == "" || contentType != "application/json" {
		t.Fatalf("missing headers: id=%q type=%q", reqID, contentType)
	}
	if string(ack) != `{"status":"ok","message":"speed set"}` {
		t.Fatalf("unexpected ack %s", ack)
	}
}

func TestControlNullValue(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
	})
	if _, err := c.Control(context.Background(), telemetry.ControlRequest{Action: telemetry.ActionStart}); err != nil {
		t.Fatalf("Control: %v", err)
	}
	v, ok := raw["value"]
	if !ok || v != nil {
		t.Fatalf("expected explicit null value, got %v (present=%v)", v, ok)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"unknown action"}`))
	})
	_, err := c.Status(context.Background())
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "unknown action" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestAPIErrorShapes(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"control envelope", `{"status":"error","message":"Invalid speed value."}`, "Invalid speed value."},
		{"error field", `{"error":"upstream timeout"}`, "upstream timeout"},
		{"plain text", "bad gateway\n", "bad gateway"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		var seenID string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			seenID = r.Header.Get("X-Request-ID")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(tc.body))
		})
		_, err := c.Control(context.Background(), telemetry.ControlRequest{Action: telemetry.ActionStart})
		apiErr, ok := IsAPIError(err)
		if !ok {
			t.Fatalf("%s: expected APIError, got %v", tc.name, err)
		}
		if apiErr.Message != tc.want || apiErr.RequestID != seenID || apiErr.Method != http.MethodPost || apiErr.Path != "/api/control" {
			t.Fatalf("%s: unexpected error %+v (request id %q)", tc.name, apiErr, seenID)
		}
	}

	err := APIError{Method: "GET", Path: "/api/status", Status: http.StatusServiceUnavailable}
	if got := err.Error(); got != "GET /api/status: backend answered 503: Service Unavailable" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNewRejectsMissingHost(t *testing.T) {
	if _, err := New("http://"); err == nil {
		t.Fatalf("expected error for a url without host")
	}
	c, err := New("")
	if err != nil || c.BaseURL() != "http://localhost:5000" {
		t.Fatalf("unexpected default base %v %v", c, err)
	}
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Statistics(ctx); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
