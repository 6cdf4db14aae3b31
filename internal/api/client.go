// Package api is a typed client for the simulation backend's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pilgrimwatch/internal/telemetry"
)

// Client provides typed access to the backend endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New constructs a Client pointing at base. A bare host:port gets http://.
func New(base string, opts ...Option) (*Client, error) {
	root, err := normaliseBase(base)
	if err != nil {
		return nil, err
	}
	cli := &Client{baseURL: root, httpClient: &http.Client{}, log: slog.Default()}
	for _, opt := range opts {
		opt(cli)
	}
	cli.log = cli.log.With("component", "api")
	return cli, nil
}

func normaliseBase(base string) (string, error) {
	raw := strings.TrimSpace(base)
	if raw == "" {
		raw = "localhost:5000"
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", base)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

// BaseURL returns the normalised server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is a non-2xx response from the backend. Message comes from the
// backend's {"status":"error","message":...} envelope when it sent one.
type APIError struct {
	Method    string
	Path      string
	Status    int
	Message   string
	RequestID string
}

func (e APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: backend answered %d: %s", e.Method, e.Path, e.Status, msg)
}

// IsAPIError reports whether err carries an APIError and returns it.
func IsAPIError(err error) (APIError, bool) {
	var apiErr APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// Status fetches GET /api/status.
func (c *Client) Status(ctx context.Context) (telemetry.SimulationStatus, error) {
	var out telemetry.SimulationStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Statistics fetches GET /api/statistics.
func (c *Client) Statistics(ctx context.Context) (telemetry.Statistics, error) {
	var out telemetry.Statistics
	err := c.do(ctx, http.MethodGet, "/api/statistics", nil, &out)
	return out, err
}

// TemperatureTimeline fetches GET /api/temperature-timeline.
func (c *Client) TemperatureTimeline(ctx context.Context) (telemetry.TemperatureTimeline, error) {
	var out telemetry.TemperatureTimeline
	err := c.do(ctx, http.MethodGet, "/api/temperature-timeline", nil, &out)
	return out, err
}

// AlertsTimeline fetches GET /api/alerts-timeline.
func (c *Client) AlertsTimeline(ctx context.Context) (telemetry.AlertsTimeline, error) {
	var out telemetry.AlertsTimeline
	err := c.do(ctx, http.MethodGet, "/api/alerts-timeline", nil, &out)
	return out, err
}

// Control posts a control request. The acknowledgement body is returned raw;
// callers only log it.
func (c *Client) Control(ctx context.Context, req telemetry.ControlRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/api/control", req, &out)
	return out, err
}

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 4 << 10

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return errors.New("api: nil client")
	}
	req, reqID, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	log := c.log.With("method", method, "path", path, "request_id", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("backend unreachable", "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := APIError{Method: method, Path: path, Status: resp.StatusCode, RequestID: reqID}
		apiErr.Message = failureMessage(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("backend rejected request", "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}
	log.Debug("backend call", "status", resp.StatusCode, "took", time.Since(start))
	return decodeBody(resp.Body, path, v)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, "", fmt.Errorf("build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, reqID, nil
}

// decodeBody fills v from r. A *json.RawMessage receives the trimmed bytes
// as they are.
func decodeBody(r io.Reader, path string, v any) error {
	if v == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if raw, ok := v.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], bytes.TrimSpace(data)...)
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// failureMessage pulls the reason out of an error body. The control
// endpoint answers with a ControlResponse; proxies in front of the backend
// tend to use {"error":...} or plain text.
func failureMessage(r io.Reader) string {
	data, err := io.ReadAll(r)
	data = bytes.TrimSpace(data)
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope struct {
		telemetry.ControlResponse
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) != nil {
		return string(data)
	}
	for _, m := range []string{envelope.Message, envelope.Error} {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}
