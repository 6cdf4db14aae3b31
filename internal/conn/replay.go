package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Record is one line of a JSONL capture.
type Record struct {
	Time    time.Time       `json:"ts"`
	Kind    string          `json:"kind"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func recordOf(ev Event) Record {
	return Record{Time: ev.At, Kind: ev.Kind.String(), Name: ev.Name, Payload: ev.Payload}
}

func (r Record) event() (Event, bool) {
	switch r.Kind {
	case "connect":
		return Event{Kind: Connected, At: r.Time}, true
	case "disconnect":
		return Event{Kind: Disconnected, At: r.Time}, true
	case "message", "":
		if r.Name == "" {
			return Event{}, false
		}
		return Event{Kind: Message, Name: r.Name, Payload: r.Payload, At: r.Time}, true
	}
	return Event{}, false
}

// Replayer feeds a capture back as a Source. A speed >0 scales the recorded
// gaps between events; speed <= 0 replays without delay.
type Replayer struct {
	r      io.Reader
	speed  float64
	log    *slog.Logger
	events chan Event
	sleep  func(context.Context, time.Duration) bool
}

// NewReplayer creates a Replayer reading JSONL records from r.
func NewReplayer(r io.Reader, speed float64, logger *slog.Logger) *Replayer {
	return &Replayer{
		r:      r,
		speed:  speed,
		log:    logger.With("component", "replay"),
		events: make(chan Event, 64),
		sleep:  sleepCtx,
	}
}

// Events implements Source.
func (p *Replayer) Events() <-chan Event { return p.events }

// Run replays the capture until EOF or ctx is cancelled. A synthetic
// Connected event is emitted first when the capture does not begin with one.
// The events channel is closed when Run returns.
func (p *Replayer) Run(ctx context.Context) error {
	defer close(p.events)
	dec := json.NewDecoder(p.r)
	var prev time.Time
	first := true
	for n := 1; ; n++ {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("capture record %d: %w", n, err)
		}
		ev, ok := rec.event()
		if !ok {
			p.log.Warn("skipping capture record", "n", n, "kind", rec.Kind)
			continue
		}
		if first {
			first = false
			if ev.Kind != Connected {
				if !p.send(ctx, Event{Kind: Connected, At: ev.At}) {
					return nil
				}
			}
		}
		if !prev.IsZero() && p.speed > 0 && !ev.At.IsZero() {
			diff := ev.At.Sub(prev)
			if p.speed != 1 {
				diff = time.Duration(float64(diff) / p.speed)
			}
			if diff > 0 && !p.sleep(ctx, diff) {
				return nil
			}
		}
		if !p.send(ctx, ev) {
			return nil
		}
		if !ev.At.IsZero() {
			prev = ev.At
		}
	}
}

func (p *Replayer) send(ctx context.Context, ev Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// ReplayFile opens path and returns a Replayer plus a close function.
func ReplayFile(path string, speed float64, logger *slog.Logger) (*Replayer, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReplayer(f, speed, logger), f.Close, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Recorder tees the events of a Source into a JSONL capture.
type Recorder struct {
	src    Source
	enc    *json.Encoder
	log    *slog.Logger
	events chan Event
}

// NewRecorder wraps src; every event read through the Recorder is also
// written to w.
func NewRecorder(src Source, w io.Writer, logger *slog.Logger) *Recorder {
	return &Recorder{
		src:    src,
		enc:    json.NewEncoder(w),
		log:    logger.With("component", "recorder"),
		events: make(chan Event, 64),
	}
}

// Events implements Source.
func (r *Recorder) Events() <-chan Event { return r.events }

// Run copies events until the wrapped source closes or ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.events)
	in := r.src.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			r.write(ev)
			select {
			case r.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Recorder) write(ev Event) {
	if err := r.enc.Encode(recordOf(ev)); err != nil {
		r.log.Warn("capture write failed", "error", err)
	}
}
