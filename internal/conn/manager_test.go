package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pilgrimwatch/internal/logging"
)

// fakeServer speaks just enough Socket.IO for one scripted session.
func fakeServer(t *testing.T, script func(ws *websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.Error(w, "bad handshake", http.StatusBadRequest)
			return
		}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		script(ws)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Errorf("server write %q: %v", frame, err)
	}
}

func recv(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Errorf("server read: %v", err)
		return ""
	}
	return string(data)
}

func collect(t *testing.T, src Source) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-src.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out collecting events, got %d", len(out))
		}
	}
}

func TestManagerSession(t *testing.T) {
	pong := make(chan string, 1)
	srv := fakeServer(t, func(ws *websocket.Conn) {
		send(t, ws, `0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`)
		if got := recv(t, ws); got != "40/ws/demo," {
			t.Errorf("expected namespace connect, got %q", got)
		}
		send(t, ws, `40/ws/demo,{"sid":"xyz"}`)
		send(t, ws, "2")
		pong <- recv(t, ws)
		send(t, ws, `42/other,["realtime_event",{"alert":"RED"}]`)
		send(t, ws, `42/ws/demo,["realtime_event",{"alert":"RED"}]`)
		send(t, ws, "41/ws/demo,")
	})

	m := NewManager(Options{ServerURL: srv.URL, Namespace: "/ws/demo"}, logging.Discard())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(context.Background()) }()

	events := collect(t, m)
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if got := <-pong; got != "3" {
		t.Fatalf("expected pong frame, got %q", got)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != Connected || events[2].Kind != Disconnected {
		t.Fatalf("unexpected event kinds: %v %v", events[0].Kind, events[2].Kind)
	}
	msg := events[1]
	if msg.Kind != Message || msg.Name != "realtime_event" || string(msg.Payload) != `{"alert":"RED"}` {
		t.Fatalf("unexpected message event: %+v", msg)
	}
	if m.Connected() {
		t.Fatalf("expected manager to report disconnected")
	}
}

func TestManagerNamespaceRefused(t *testing.T) {
	srv := fakeServer(t, func(ws *websocket.Conn) {
		send(t, ws, `0{"sid":"abc","pingInterval":25000,"pingTimeout":20000}`)
		recv(t, ws)
		send(t, ws, `44/ws/demo,{"message":"nope"}`)
	})
	m := NewManager(Options{ServerURL: srv.URL, Namespace: "/ws/demo"}, logging.Discard())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(context.Background()) }()
	if events := collect(t, m); len(events) != 0 {
		t.Fatalf("expected no events for refused namespace, got %+v", events)
	}
	if err := <-errc; err == nil {
		t.Fatalf("expected refusal error")
	}
}

func TestManagerReconnects(t *testing.T) {
	sessions := make(chan struct{}, 4)
	srv := fakeServer(t, func(ws *websocket.Conn) {
		sessions <- struct{}{}
		send(t, ws, `0{"sid":"abc","pingInterval":25000,"pingTimeout":20000}`)
		recv(t, ws)
		send(t, ws, "40/ws/demo,")
		send(t, ws, "41/ws/demo,")
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(Options{
		ServerURL:      srv.URL,
		Namespace:      "/ws/demo",
		Reconnect:      true,
		BackoffInitial: 10 * time.Millisecond,
		BackoffMax:     20 * time.Millisecond,
	}, logging.Discard())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()

	connects := 0
	timeout := time.After(3 * time.Second)
	for connects < 2 {
		select {
		case ev := <-m.Events():
			if ev.Kind == Connected {
				connects++
			}
		case <-timeout:
			t.Fatalf("expected a second connect after backoff")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if len(sessions) < 2 {
		t.Fatalf("expected at least two sessions, got %d", len(sessions))
	}
}

func TestManagerBadURL(t *testing.T) {
	m := NewManager(Options{ServerURL: "ftp://nowhere"}, logging.Discard())
	if err := m.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	if _, ok := <-m.Events(); ok {
		t.Fatalf("expected closed events channel")
	}
}
