package simserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pilgrimwatch/internal/telemetry"
)

// Options configures a Server.
type Options struct {
	Namespace    string
	SocketPath   string
	PingInterval time.Duration
	// Interval is the delay between records at speed 1.
	Interval time.Duration
}

// Server exposes an Engine over HTTP and Socket.IO.
type Server struct {
	Engine *Engine
	hub    *Hub
	mux    *http.ServeMux
	log    *slog.Logger
}

// New builds a Server replaying data.
func New(data []telemetry.Reading, opts Options, logger *slog.Logger) *Server {
	if opts.Namespace == "" {
		opts.Namespace = "/ws/demo"
	}
	if opts.SocketPath == "" {
		opts.SocketPath = "/socket.io/"
	}
	s := &Server{mux: http.NewServeMux(), log: logger.With("component", "simserver")}
	s.hub = NewHub(opts.Namespace, opts.PingInterval, func() any { return s.Engine.Greeting() }, logger)
	s.Engine = NewEngine(data, s.hub, opts.Interval, logger)
	s.routes(opts.SocketPath)
	return s
}

func (s *Server) routes(socketPath string) {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	s.mux.HandleFunc("GET /api/temperature-timeline", s.handleTemperatureTimeline)
	s.mux.HandleFunc("GET /api/alerts-timeline", s.handleAlertsTimeline)
	s.mux.HandleFunc("POST /api/control", s.handleControl)
	s.mux.Handle(socketPath, s.hub)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Hub returns the Socket.IO hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr and drives the engine until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = s.Engine.Run(ctx)
	}()

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	<-engineDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Status())
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Statistics())
}

func (s *Server) handleTemperatureTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.TemperatureTimeline())
}

func (s *Server) handleAlertsTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.AlertsTimeline())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req telemetry.ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, telemetry.ControlResponse{Status: "error", Message: "Invalid request body."})
		return
	}
	resp, err := s.Engine.Control(req)
	if err != nil {
		s.log.Warn("control rejected", "action", req.Action, "error", err)
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
