package dashboard

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"pilgrimwatch/internal/telemetry"
)

func TestColorPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewColorPrinter(&buf, &Overview{Source: "http://localhost:5000", Namespace: "/ws/demo"})
	s := NewState(DefaultOptions())
	in := rt("P00001", telemetry.AlertRed)
	s, _ = Reduce(s, in)
	p.Observe(Update{Input: in, State: s})
	out := buf.String()
	if !strings.Contains(out, "Source:") || !strings.Contains(out, "/ws/demo") {
		t.Fatalf("overview not printed: %q", out)
	}
	if !strings.Contains(out, "\x1b[31mRED") || !strings.Contains(out, "pilgrim=P00001") {
		t.Fatalf("unexpected line: %q", out)
	}

	buf.Reset()
	p.Observe(Update{Input: Connected{}, State: s})
	if strings.Contains(buf.String(), "Source:") || !strings.Contains(buf.String(), "CONNECTED") {
		t.Fatalf("unexpected second write: %q", buf.String())
	}

	buf.Reset()
	p.Observe(Update{Input: PulseExpired{}, State: s})
	if buf.Len() != 0 {
		t.Fatalf("timer expiries should not print: %q", buf.String())
	}
}

func TestJSONPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONPrinter(&buf)
	s := NewState(DefaultOptions())
	in := rt("P00001", telemetry.AlertOrange)
	s, _ = Reduce(s, in)
	p.Observe(Update{Input: in, State: s})
	p.Observe(Update{Input: FlashExpired{}, State: s})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %q", buf.String())
	}
	var got struct {
		Input    string                `json:"input"`
		Counters telemetry.AlertCounts `json:"counters"`
		LogSize  int                   `json:"log_size"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Input != "realtime_event" || got.Counters.Orange != 1 || got.LogSize != 1 {
		t.Fatalf("unexpected line %+v", got)
	}
}

func TestMultiObserver(t *testing.T) {
	var a, b int
	m := NewMultiObserver(ObserverFunc(func(Update) { a++ }), nil, ObserverFunc(func(Update) { b++ }))
	m.Observe(Update{Input: Connected{}})
	if a != 1 || b != 1 {
		t.Fatalf("fan-out failed: a=%d b=%d", a, b)
	}
	var c int
	m.Add(nil)
	m.Add(ObserverFunc(func(Update) { c++ }))
	m.Observe(Update{Input: Disconnected{}})
	if a != 2 || c != 1 {
		t.Fatalf("added observer not called: a=%d c=%d", a, c)
	}
}
