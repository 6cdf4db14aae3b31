// Package conn owns the event channel to the simulation backend.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"pilgrimwatch/internal/socketio"
)

// Kind classifies an Event.
type Kind int

const (
	Connected Kind = iota
	Disconnected
	Message
)

func (k Kind) String() string {
	switch k {
	case Connected:
		return "connect"
	case Disconnected:
		return "disconnect"
	case Message:
		return "message"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one observation from the channel. Name and Payload are only set
// for Message events.
type Event struct {
	Kind    Kind
	Name    string
	Payload json.RawMessage
	At      time.Time
}

// Source delivers channel events in arrival order.
type Source interface {
	Events() <-chan Event
}

// Options configures a Manager.
type Options struct {
	ServerURL      string
	Namespace      string
	SocketPath     string
	Reconnect      bool
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Header         http.Header
}

// Manager maintains one Socket.IO connection and republishes what it
// receives as Events.
type Manager struct {
	opts      Options
	dialer    *websocket.Dialer
	log       *slog.Logger
	events    chan Event
	connected atomic.Bool
	now       func() time.Time
}

// NewManager creates a Manager. Run must be called to connect.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 500 * time.Millisecond
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = opts.BackoffInitial
	}
	return &Manager{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logger.With("component", "conn"),
		events: make(chan Event, 256),
		now:    time.Now,
	}
}

// Events implements Source.
func (m *Manager) Events() <-chan Event { return m.events }

// Connected reports whether the namespace is currently joined.
func (m *Manager) Connected() bool { return m.connected.Load() }

// Run connects and keeps the connection alive until ctx is cancelled, or
// until the first disconnect when reconnecting is disabled. The events
// channel is closed when Run returns.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	wsURL, err := socketio.HandshakeURL(m.opts.ServerURL, m.opts.SocketPath)
	if err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.opts.BackoffInitial
	bo.MaxInterval = m.opts.BackoffMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		joined, err := m.session(ctx, wsURL)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			m.log.Warn("connection lost", "error", err, "joined", joined)
		}
		if !m.opts.Reconnect {
			return err
		}
		if joined {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		m.log.Info("reconnecting", "in", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// session runs one connection lifetime. joined reports whether the
// namespace CONNECT was acknowledged.
func (m *Manager) session(ctx context.Context, wsURL string) (joined bool, err error) {
	ws, _, err := m.dialer.DialContext(ctx, wsURL, m.opts.Header)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()
	defer ws.Close()

	open, err := m.handshake(ws)
	if err != nil {
		return false, err
	}
	deadline := time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond

	defer func() {
		if joined {
			m.connected.Store(false)
			m.emit(ctx, Event{Kind: Disconnected, At: m.now()})
		}
	}()

	for {
		if deadline > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(deadline))
		}
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return joined, fmt.Errorf("read: %w", err)
		}
		typ, data, err := socketio.DecodeEngine(frame)
		if err != nil {
			m.log.Warn("dropping frame", "error", err)
			continue
		}
		switch typ {
		case socketio.EnginePing:
			if err := ws.WriteMessage(websocket.TextMessage, socketio.EncodeEngine(socketio.EnginePong, data)); err != nil {
				return joined, fmt.Errorf("pong: %w", err)
			}
		case socketio.EngineClose:
			return joined, errors.New("server closed the session")
		case socketio.EngineMessage:
			done, err := m.handlePacket(ctx, data, &joined)
			if err != nil {
				return joined, err
			}
			if done {
				return joined, nil
			}
		}
	}
}

func (m *Manager) handshake(ws *websocket.Conn) (socketio.OpenPayload, error) {
	var open socketio.OpenPayload
	_, frame, err := ws.ReadMessage()
	if err != nil {
		return open, fmt.Errorf("read open packet: %w", err)
	}
	typ, data, err := socketio.DecodeEngine(frame)
	if err != nil {
		return open, err
	}
	if typ != socketio.EngineOpen {
		return open, fmt.Errorf("expected open packet, got %q", byte(typ))
	}
	if err := json.Unmarshal(data, &open); err != nil {
		return open, fmt.Errorf("decode open packet: %w", err)
	}
	pkt, err := socketio.ConnectPacket(m.opts.Namespace, nil)
	if err != nil {
		return open, err
	}
	if err := ws.WriteMessage(websocket.TextMessage, pkt.Message()); err != nil {
		return open, fmt.Errorf("join namespace: %w", err)
	}
	m.log.Debug("engine.io open", "sid", open.SID, "ping_interval_ms", open.PingInterval)
	return open, nil
}

// handlePacket processes one Socket.IO packet. done is true when the server
// left our namespace.
func (m *Manager) handlePacket(ctx context.Context, data []byte, joined *bool) (done bool, err error) {
	pkt, err := socketio.DecodePacket(data)
	if err != nil {
		m.log.Warn("dropping packet", "error", err)
		return false, nil
	}
	if pkt.Namespace != m.opts.Namespace {
		return false, nil
	}
	switch pkt.Type {
	case socketio.Connect:
		if !*joined {
			*joined = true
			m.connected.Store(true)
			m.log.Info("connected", "server", m.opts.ServerURL, "namespace", m.opts.Namespace)
			m.emit(ctx, Event{Kind: Connected, At: m.now()})
		}
	case socketio.ConnectError:
		return false, fmt.Errorf("namespace %s refused: %s", m.opts.Namespace, string(pkt.Data))
	case socketio.Disconnect:
		return true, nil
	case socketio.Event:
		name, payload, err := pkt.Event()
		if err != nil {
			m.log.Warn("dropping event", "error", err)
			return false, nil
		}
		m.emit(ctx, Event{Kind: Message, Name: name, Payload: payload, At: m.now()})
	}
	return false, nil
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}
