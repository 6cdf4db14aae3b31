// Package simserver is a development backend that replays a pilgrim dataset
// over Socket.IO and serves the dashboard REST API.
package simserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"pilgrimwatch/internal/telemetry"
)

// ErrInvalidControl is returned for control requests the engine rejects.
var ErrInvalidControl = errors.New("invalid control request")

// Broadcaster fans an event out to every joined client.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Engine walks the dataset one record per tick while running.
type Engine struct {
	mu       sync.Mutex
	data     []telemetry.Reading
	running  bool
	speed    int
	index    int
	stats    tally
	out      Broadcaster
	log      *slog.Logger
	interval time.Duration
	wake     chan struct{}
}

// NewEngine creates a paused engine at speed 1. interval is the delay
// between records at speed 1; zero means one second.
func NewEngine(data []telemetry.Reading, out Broadcaster, interval time.Duration, logger *slog.Logger) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{
		data:     data,
		speed:    1,
		stats:    newTally(),
		out:      out,
		log:      logger.With("component", "engine"),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Run drives playback until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started", "records", len(e.data))
	for {
		e.mu.Lock()
		running := e.running
		delay := e.interval / time.Duration(e.speed)
		e.mu.Unlock()

		if !running {
			select {
			case <-ctx.Done():
				return nil
			case <-e.wake:
				continue
			}
		}

		e.tick()

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	if e.index >= len(e.data) {
		e.running = false
		e.broadcastStatus(telemetry.StatusFinished)
		e.log.Info("simulation finished", "records", len(e.data))
		return
	}
	e.emit()
}

// emit sends the record at index. Callers hold mu.
func (e *Engine) emit() {
	r := e.data[e.index]
	ev := telemetry.Classify(r)
	e.stats.add(r, ev.Alert)
	e.out.Broadcast("realtime_event", ev)

	clock := r.Timestamp
	if t, err := r.Time(); err == nil {
		clock = t.Format("15:04:05")
	}
	e.out.Broadcast("counters_update", telemetry.CountersUpdate{Ground: r.Ground, Nusuk: r.Nusuk, Time: clock})
	e.index++
}

// broadcastStatus sends simulation_status. Callers hold mu.
func (e *Engine) broadcastStatus(status string) {
	e.out.Broadcast("simulation_status", e.statusEvent(status))
}

func (e *Engine) statusEvent(status string) telemetry.StatusEvent {
	running, speed := e.running, e.speed
	return telemetry.StatusEvent{Status: status, Running: &running, Speed: &speed}
}

// Greeting is the simulation_status payload sent to a client that joins.
func (e *Engine) Greeting() telemetry.StatusEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusEvent(telemetry.StatusConnected)
}

// Control applies one control request and broadcasts the new status.
func (e *Engine) Control(req telemetry.ControlRequest) (telemetry.ControlResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	resp := telemetry.ControlResponse{Status: "ok"}
	switch req.Action {
	case telemetry.ActionStart:
		e.running = true
		select {
		case e.wake <- struct{}{}:
		default:
		}
		resp.Message = "Simulation started."
	case telemetry.ActionPause:
		e.running = false
		resp.Message = "Simulation paused."
	case telemetry.ActionReset:
		e.running = false
		e.index = 0
		e.stats = newTally()
		resp.Message = "Simulation reset."
	case telemetry.ActionNextStep:
		switch {
		case e.running:
			resp.Message = "Simulation is running."
		case e.index >= len(e.data):
			resp.Message = "No more records."
		default:
			e.emit()
			resp.Message = fmt.Sprintf("Emitted record %d.", e.index)
		}
	case telemetry.ActionSpeed:
		if req.Value == nil {
			return errorResponse("Speed requires a value.")
		}
		switch v := *req.Value; v {
		case 1, 2, 4:
			e.speed = v
			resp.Message = fmt.Sprintf("Playback speed set to %dx.", v)
		default:
			return errorResponse("Invalid speed value.")
		}
	default:
		return errorResponse("Invalid action.")
	}

	e.broadcastStatus(strings.ToLower(string(req.Action)))
	e.log.Info("control", "action", req.Action, "running", e.running, "speed", e.speed, "index", e.index)
	return resp, nil
}

func errorResponse(msg string) (telemetry.ControlResponse, error) {
	return telemetry.ControlResponse{Status: "error", Message: msg}, fmt.Errorf("%w: %s", ErrInvalidControl, msg)
}

// Status reports the playback position.
func (e *Engine) Status() telemetry.SimulationStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return telemetry.SimulationStatus{
		Running:      e.running,
		CurrentIndex: e.index,
		TotalRecords: len(e.data),
		Speed:        e.speed,
	}
}

// Statistics summarises the records emitted since the last reset.
func (e *Engine) Statistics() telemetry.Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.statistics()
}

// TemperatureTimeline returns per-minute temperature aggregates.
func (e *Engine) TemperatureTimeline() telemetry.TemperatureTimeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.temperatureTimeline()
}

// AlertsTimeline returns per-minute alert counts.
func (e *Engine) AlertsTimeline() telemetry.AlertsTimeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.alertsTimeline()
}

type bucket struct {
	minute              string
	sum, min, max       float64
	n                   int
	red, orange, yellow int
}

type tally struct {
	alerts    telemetry.AlertCounts
	n         int
	sum       float64
	min, max  float64
	locations map[string]int
	buckets   []*bucket
	byMinute  map[string]*bucket
}

func newTally() tally {
	return tally{locations: map[string]int{}, byMinute: map[string]*bucket{}}
}

const minuteLayout = "2006-01-02T15:04"

func (t *tally) add(r telemetry.Reading, level telemetry.AlertLevel) {
	switch level {
	case telemetry.AlertRed:
		t.alerts.Red++
	case telemetry.AlertOrange:
		t.alerts.Orange++
	case telemetry.AlertYellow:
		t.alerts.Yellow++
	case telemetry.AlertBlue:
		t.alerts.Blue++
	}
	if t.n == 0 || r.Temp < t.min {
		t.min = r.Temp
	}
	if t.n == 0 || r.Temp > t.max {
		t.max = r.Temp
	}
	t.n++
	t.sum += r.Temp
	if r.Ground != "" {
		t.locations[r.Ground]++
	}

	minute := r.Timestamp
	if ts, err := r.Time(); err == nil {
		minute = ts.Format(minuteLayout)
	}
	b, ok := t.byMinute[minute]
	if !ok {
		b = &bucket{minute: minute, min: r.Temp, max: r.Temp}
		t.byMinute[minute] = b
		t.buckets = append(t.buckets, b)
	}
	b.n++
	b.sum += r.Temp
	b.min = math.Min(b.min, r.Temp)
	b.max = math.Max(b.max, r.Temp)
	switch level {
	case telemetry.AlertRed:
		b.red++
	case telemetry.AlertOrange:
		b.orange++
	case telemetry.AlertYellow:
		b.yellow++
	}
}

func (t *tally) statistics() telemetry.Statistics {
	st := telemetry.Statistics{Alerts: t.alerts, Locations: make(map[string]int, len(t.locations))}
	for k, v := range t.locations {
		st.Locations[k] = v
	}
	if t.n > 0 {
		st.Temperature = telemetry.TemperatureSummary{Min: t.min, Max: t.max, Avg: round1(t.sum / float64(t.n))}
	}
	return st
}

func (t *tally) temperatureTimeline() telemetry.TemperatureTimeline {
	tl := telemetry.TemperatureTimeline{
		Timestamps: []string{},
		AvgTemps:   []float64{},
		MaxTemps:   []float64{},
		MinTemps:   []float64{},
	}
	for _, b := range t.buckets {
		tl.Timestamps = append(tl.Timestamps, b.minute)
		tl.AvgTemps = append(tl.AvgTemps, round1(b.sum/float64(b.n)))
		tl.MaxTemps = append(tl.MaxTemps, b.max)
		tl.MinTemps = append(tl.MinTemps, b.min)
	}
	return tl
}

func (t *tally) alertsTimeline() telemetry.AlertsTimeline {
	tl := telemetry.AlertsTimeline{Timestamps: []string{}, Red: []int{}, Orange: []int{}, Yellow: []int{}}
	for _, b := range t.buckets {
		tl.Timestamps = append(tl.Timestamps, b.minute)
		tl.Red = append(tl.Red, b.red)
		tl.Orange = append(tl.Orange, b.orange)
		tl.Yellow = append(tl.Yellow, b.yellow)
	}
	return tl
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
