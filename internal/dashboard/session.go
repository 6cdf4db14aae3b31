package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pilgrimwatch/internal/conn"
	"pilgrimwatch/internal/telemetry"
)

// Backend is the read side of the REST surface.
type Backend interface {
	Status(ctx context.Context) (telemetry.SimulationStatus, error)
	Statistics(ctx context.Context) (telemetry.Statistics, error)
	TemperatureTimeline(ctx context.Context) (telemetry.TemperatureTimeline, error)
	AlertsTimeline(ctx context.Context) (telemetry.AlertsTimeline, error)
}

// Update is published after every applied input.
type Update struct {
	Input   Input
	State   State
	Effects []Effect
}

// Observer receives every Update, in order, on the session goroutine.
type Observer interface {
	Observe(Update)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Update)

// Observe implements Observer.
func (f ObserverFunc) Observe(u Update) { f(u) }

// SessionOptions configures a Session.
type SessionOptions struct {
	Options
	PulseDuration time.Duration
	FlashDuration time.Duration
	FetchTimeout  time.Duration
}

// Session is the single event loop: it owns State, applies inputs in arrival
// order and carries out the reducer's effects.
type Session struct {
	src     conn.Source
	backend Backend
	obs     Observer
	opts    SessionOptions
	log     *slog.Logger

	state  State
	inputs chan Input
	done   chan struct{}
	wg     sync.WaitGroup
}

var errUnknownEvent = errors.New("unknown event")

// NewSession wires a source, a backend and an observer together. backend and
// obs may be nil.
func NewSession(src conn.Source, backend Backend, obs Observer, opts SessionOptions, logger *slog.Logger) *Session {
	if opts.PulseDuration <= 0 {
		opts.PulseDuration = 900 * time.Millisecond
	}
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = 1200 * time.Millisecond
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	return &Session{
		src:     src,
		backend: backend,
		obs:     obs,
		opts:    opts,
		log:     logger.With("component", "session"),
		state:   NewState(opts.Options),
		inputs:  make(chan Input, 64),
		done:    make(chan struct{}),
	}
}

// Post queues an input for the loop. It is safe to call from any goroutine
// and drops the input once the loop has stopped.
func (s *Session) Post(in Input) {
	select {
	case s.inputs <- in:
	case <-s.done:
	}
}

// State returns the final state. It is only valid after Run has returned.
func (s *Session) State() State { return s.state }

// Run processes events until the source closes or ctx is cancelled.
// In-flight fetches are cancelled and waited for before Run returns.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		close(s.done)
		s.wg.Wait()
	}()

	events := s.src.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				s.log.Info("event source closed")
				return nil
			}
			in, err := decodeEvent(ev)
			if errors.Is(err, errUnknownEvent) {
				s.log.Debug("ignoring event", "name", ev.Name)
				continue
			}
			if err != nil {
				s.log.Warn("malformed event", "name", ev.Name, "error", err)
				continue
			}
			s.apply(ctx, in)
		case in := <-s.inputs:
			s.apply(ctx, in)
		}
	}
}

func (s *Session) apply(ctx context.Context, in Input) {
	next, effects := Reduce(s.state, in)
	s.state = next
	if s.obs != nil {
		s.obs.Observe(Update{Input: in, State: next, Effects: effects})
	}
	for _, e := range effects {
		s.execute(ctx, e)
	}
}

func (s *Session) execute(ctx context.Context, e Effect) {
	switch e := e.(type) {
	case Bootstrap:
		if s.backend == nil {
			return
		}
		fetch(s, ctx, "status", s.backend.Status, func(v telemetry.SimulationStatus) Input { return StatusLoaded{v, e.Generation} })
		s.execute(ctx, Reconcile{Generation: e.Generation})
	case Reconcile:
		if s.backend == nil {
			return
		}
		fetch(s, ctx, "statistics", s.backend.Statistics, func(v telemetry.Statistics) Input { return StatisticsLoaded{v, e.Generation} })
		fetch(s, ctx, "temperature timeline", s.backend.TemperatureTimeline, func(v telemetry.TemperatureTimeline) Input { return TemperatureTimelineLoaded{v, e.Generation} })
		fetch(s, ctx, "alerts timeline", s.backend.AlertsTimeline, func(v telemetry.AlertsTimeline) Input { return AlertsTimelineLoaded{v, e.Generation} })
	case SchedulePulse:
		time.AfterFunc(s.opts.PulseDuration, func() { s.Post(PulseExpired{e.Version}) })
	case ScheduleFlash:
		time.AfterFunc(s.opts.FlashDuration, func() { s.Post(FlashExpired{e.Version}) })
	}
}

func fetch[T any](s *Session, ctx context.Context, what string, call func(context.Context) (T, error), wrap func(T) Input) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
		v, err := call(fctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("fetch failed", "what", what, "error", err)
			}
			return
		}
		s.Post(wrap(v))
	}()
}

func decodeEvent(ev conn.Event) (Input, error) {
	switch ev.Kind {
	case conn.Connected:
		return Connected{}, nil
	case conn.Disconnected:
		return Disconnected{}, nil
	}
	switch ev.Name {
	case "realtime_event":
		var p telemetry.RealtimeEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, err
		}
		if p.Event.PilgrimID == "" {
			return nil, fmt.Errorf("realtime_event without pilgrim_id")
		}
		if !p.Alert.Valid() {
			return nil, fmt.Errorf("unknown alert level %q", p.Alert)
		}
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		return Realtime{Event: p, ReceivedAt: at}, nil
	case "counters_update":
		var p telemetry.CountersUpdate
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, err
		}
		return Counters{p}, nil
	case "simulation_status":
		var p telemetry.StatusEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, err
		}
		if p.Status == "" {
			return nil, fmt.Errorf("simulation_status without status")
		}
		return StatusChanged{p}, nil
	}
	return nil, errUnknownEvent
}
