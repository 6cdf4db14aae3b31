package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"pilgrimwatch/internal/logging"
	"pilgrimwatch/internal/telemetry"
)

type fakeController struct {
	mu   sync.Mutex
	reqs []telemetry.ControlRequest
	err  error
}

func (c *fakeController) Control(_ context.Context, req telemetry.ControlRequest) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	return json.RawMessage(`{"status":"ok"}`), nil
}

func TestDispatcherSend(t *testing.T) {
	ctl := &fakeController{}
	d := NewDispatcher(context.Background(), ctl, logging.Discard())
	speed := 4
	ignored := 9
	if !d.Send(telemetry.ActionStart, &ignored) || !d.Send(telemetry.ActionSpeed, &speed) {
		t.Fatalf("expected both requests to be issued")
	}
	d.Wait()
	if len(ctl.reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(ctl.reqs))
	}
	for _, r := range ctl.reqs {
		switch r.Action {
		case telemetry.ActionStart:
			if r.Value != nil {
				t.Fatalf("START must not carry a value")
			}
		case telemetry.ActionSpeed:
			if r.Value == nil || *r.Value != 4 {
				t.Fatalf("SPEED value lost: %+v", r)
			}
		}
	}
}

func TestDispatcherRejectsInvalid(t *testing.T) {
	ctl := &fakeController{}
	d := NewDispatcher(context.Background(), ctl, logging.Discard())
	zero := 0
	if d.Send(telemetry.ActionSpeed, nil) || d.Send(telemetry.ActionSpeed, &zero) || d.Send("JUMP", nil) {
		t.Fatalf("invalid requests must be dropped")
	}
	d.Wait()
	if len(ctl.reqs) != 0 {
		t.Fatalf("expected no requests, got %d", len(ctl.reqs))
	}
}

func TestDispatcherLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	ctl := &fakeController{err: errors.New("connection refused")}
	d := NewDispatcher(context.Background(), ctl, logging.New(&buf, "text", 0))
	d.Send(telemetry.ActionPause, nil)
	d.Wait()
	if !strings.Contains(buf.String(), "control request failed") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
	if len(ctl.reqs) != 1 {
		t.Fatalf("failed requests must not be retried")
	}
}
