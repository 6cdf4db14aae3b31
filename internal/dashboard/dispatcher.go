package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"pilgrimwatch/internal/telemetry"
)

// Controller is the write side of the REST surface.
type Controller interface {
	Control(ctx context.Context, req telemetry.ControlRequest) (json.RawMessage, error)
}

// Dispatcher turns user intents into control requests. Send never blocks on
// the backend; outcomes are only logged and the authoritative effect arrives
// later as a simulation_status event.
type Dispatcher struct {
	ctx context.Context
	ctl Controller
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewDispatcher creates a Dispatcher whose requests live as long as ctx.
func NewDispatcher(ctx context.Context, ctl Controller, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{ctx: ctx, ctl: ctl, log: logger.With("component", "dispatcher")}
}

// NewControlRequest validates an action and its value. SPEED needs a
// positive value; every other action carries none.
func NewControlRequest(action telemetry.ControlAction, value *int) (telemetry.ControlRequest, error) {
	switch action {
	case telemetry.ActionStart, telemetry.ActionPause, telemetry.ActionReset, telemetry.ActionNextStep:
		return telemetry.ControlRequest{Action: action}, nil
	case telemetry.ActionSpeed:
		if value == nil || *value <= 0 {
			return telemetry.ControlRequest{}, fmt.Errorf("SPEED needs a positive multiplier")
		}
		v := *value
		return telemetry.ControlRequest{Action: action, Value: &v}, nil
	}
	return telemetry.ControlRequest{}, fmt.Errorf("unknown control action %q", action)
}

// Send issues the request in the background. It reports whether a request
// was issued; invalid requests are logged and dropped.
func (d *Dispatcher) Send(action telemetry.ControlAction, value *int) bool {
	req, err := NewControlRequest(action, value)
	if err != nil {
		d.log.Warn("dropping control request", "error", err)
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ack, err := d.ctl.Control(d.ctx, req)
		if err != nil {
			d.log.Warn("control request failed", "action", req.Action, "error", err)
			return
		}
		d.log.Info("control acknowledged", "action", req.Action, "response", string(ack))
	}()
	return true
}

// Wait blocks until every request issued so far has completed.
func (d *Dispatcher) Wait() { d.wg.Wait() }
