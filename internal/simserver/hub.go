package simserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pilgrimwatch/internal/socketio"
)

const pingTimeout = 20 * time.Second

// Hub accepts Socket.IO websocket clients on one namespace and broadcasts
// events to those that joined it.
type Hub struct {
	nsp          string
	pingInterval time.Duration
	upgrader     websocket.Upgrader
	log          *slog.Logger
	greet        func() any

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	sid string
	out chan []byte
}

// NewHub creates a Hub for nsp. greet, when set, produces the
// simulation_status payload sent to each client that joins.
func NewHub(nsp string, pingInterval time.Duration, greet func() any, logger *slog.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	return &Hub{
		nsp:          nsp,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     logger.With("component", "hub"),
		greet:   greet,
		clients: map[*client]struct{}{},
	}
}

// Clients returns the number of joined clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast implements Broadcaster. Slow clients drop messages rather than
// block the engine.
func (h *Hub) Broadcast(event string, payload any) {
	pkt, err := socketio.EventPacket(h.nsp, event, payload)
	if err != nil {
		h.log.Warn("encode event", "event", event, "error", err)
		return
	}
	msg := pkt.Message()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.send(c, msg)
	}
}

func (h *Hub) send(c *client, msg []byte) {
	select {
	case c.out <- msg:
	default:
		h.log.Warn("client queue full, dropping message", "sid", c.sid)
	}
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and runs the Engine.IO session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "only the websocket transport is supported", http.StatusBadRequest)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	c := &client{sid: uuid.NewString(), out: make(chan []byte, 256)}
	log := h.log.With("sid", c.sid)
	defer h.leave(c)

	open, _ := json.Marshal(socketio.OpenPayload{
		SID:          c.sid,
		Upgrades:     []string{},
		PingInterval: int(h.pingInterval / time.Millisecond),
		PingTimeout:  int(pingTimeout / time.Millisecond),
	})
	if err := ws.WriteMessage(websocket.TextMessage, socketio.EncodeEngine(socketio.EngineOpen, open)); err != nil {
		log.Warn("send open packet", "error", err)
		return
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ws, c, done, log)
	}()
	defer wg.Wait()
	defer close(done)

	for {
		_ = ws.SetReadDeadline(time.Now().Add(h.pingInterval + pingTimeout))
		_, frame, err := ws.ReadMessage()
		if err != nil {
			log.Debug("client gone", "error", err)
			return
		}
		typ, data, err := socketio.DecodeEngine(frame)
		if err != nil {
			log.Warn("dropping frame", "error", err)
			continue
		}
		switch typ {
		case socketio.EngineClose:
			return
		case socketio.EngineMessage:
			if !h.handlePacket(c, data, log) {
				return
			}
		}
	}
}

// handlePacket returns false when the client left the namespace.
func (h *Hub) handlePacket(c *client, data []byte, log *slog.Logger) bool {
	pkt, err := socketio.DecodePacket(data)
	if err != nil {
		log.Warn("dropping packet", "error", err)
		return true
	}
	switch pkt.Type {
	case socketio.Connect:
		if pkt.Namespace != h.nsp {
			raw, _ := json.Marshal(map[string]string{"message": "Invalid namespace"})
			h.send(c, socketio.Packet{Type: socketio.ConnectError, Namespace: pkt.Namespace, ID: -1, Data: raw}.Message())
			return true
		}
		ack, err := socketio.ConnectPacket(h.nsp, map[string]string{"sid": c.sid})
		if err != nil {
			log.Warn("encode connect ack", "error", err)
			return false
		}
		h.send(c, ack.Message())
		h.join(c)
		if h.greet != nil {
			if ev, err := socketio.EventPacket(h.nsp, "simulation_status", h.greet()); err == nil {
				h.send(c, ev.Message())
			}
		}
		log.Info("client joined", "namespace", h.nsp)
	case socketio.Disconnect:
		if pkt.Namespace == h.nsp {
			log.Info("client left", "namespace", h.nsp)
			return false
		}
	}
	return true
}

func (h *Hub) writeLoop(ws *websocket.Conn, c *client, done <-chan struct{}, log *slog.Logger) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		var msg []byte
		select {
		case <-done:
			return
		case msg = <-c.out:
		case <-ping.C:
			msg = socketio.EncodeEngine(socketio.EnginePing, nil)
		}
		_ = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug("write failed", "error", err)
			_ = ws.Close()
			return
		}
	}
}
