package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/monitor"
)

// Backend exposes the stored alert state, the latest run and alert resets.
type Backend interface {
	State(ctx context.Context) (model.State, error)
	LastRun() *monitor.Summary
	Reset(ctx context.Context, address, supplyName string) error
}

// Server provides health check, device state and metrics endpoints.
type Server struct {
	source  Backend
	metrics http.Handler
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server. metrics may be nil.
func NewServer(source Backend, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		source:  source,
		metrics: metrics,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/devices", s.handleDevices)
	s.mux.HandleFunc("GET /api/v1/devices/{address}", s.handleDevice)
	s.mux.HandleFunc("POST /api/v1/devices/{address}/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/v1/runs/last", s.handleLastRun)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// DeviceView is the API representation of one device record.
type DeviceView struct {
	Address string `json:"address"`
	model.DeviceRecord
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]string{"status": "ok"}
	if last := s.source.LastRun(); last != nil {
		resp["last_run"] = last.Finished.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadState(w, r)
	if !ok {
		return
	}

	addresses := make([]string, 0, len(state))
	for addr := range state {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	devices := make([]DeviceView, 0, len(addresses))
	for _, addr := range addresses {
		devices = append(devices, DeviceView{Address: addr, DeviceRecord: state[addr]})
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	state, ok := s.loadState(w, r)
	if !ok {
		return
	}

	addr := r.PathValue("address")
	rec, found := state[addr]
	if !found {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, DeviceView{Address: addr, DeviceRecord: rec})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	addr := r.PathValue("address")
	supplyName := r.URL.Query().Get("supply")
	if err := s.source.Reset(ctx, addr, supplyName); err != nil {
		if errors.Is(err, monitor.ErrUnknownDevice) || errors.Is(err, monitor.ErrNoSupplyAlert) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			http.Error(w, "check in progress, try again later", http.StatusServiceUnavailable)
			return
		}
		s.logger.Error("reset alert state", "address", addr, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "address": addr, "supply": supplyName})
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	last := s.source.LastRun()
	if last == nil {
		http.Error(w, "no run completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) loadState(w http.ResponseWriter, r *http.Request) (model.State, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	state, err := s.source.State(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			http.Error(w, "check in progress, try again later", http.StatusServiceUnavailable)
			return nil, false
		}
		s.logger.Error("load alert state", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return state, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
