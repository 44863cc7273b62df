package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kgaudium/tentaclepreview/pkg/events"
	"github.com/kgaudium/tentaclepreview/pkg/fleet"
	"github.com/kgaudium/tentaclepreview/pkg/ingress"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
)

// Server is the daemon's HTTP surface.
type Server struct {
	fleet  *fleet.Fleet
	broker *events.Broker
	hub    *events.Hub
	proxy  *ingress.Proxy
	mux    *http.ServeMux
}

// NewServer wires the dashboard API, webhook receiver, websocket hub
// and reverse proxy in front of f.
func NewServer(f *fleet.Fleet, broker *events.Broker) *Server {
	s := &Server{
		fleet:  f,
		broker: broker,
		proxy:  ingress.New(f),
	}
	s.hub = events.NewHub(broker, &fleetStatusProvider{fleet: f})
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

// Handler returns the root http.Handler for the daemon's listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.instrument("GET", s.handleDashboard))
	s.mux.HandleFunc("GET /api/tentacles", s.instrument("GET", s.handleListTentacles))
	s.mux.HandleFunc("GET /api/tentacles/system-logs", s.instrument("GET", s.handleSystemLogs))
	s.mux.HandleFunc("GET /api/tentacles/{name}/logs/{kind}", s.instrument("GET", s.handleTentacleLogs))
	s.mux.HandleFunc("GET /api/tentacles/{name}/restart", s.instrument("GET", s.handleRestart))
	s.mux.HandleFunc("GET /api/tentacles/{name}/restart/{clean}", s.instrument("GET", s.handleRestart))
	s.mux.HandleFunc("POST /webhook", s.instrument("POST", s.handleWebhook))
	s.mux.HandleFunc("GET /ws", s.hub.ServeHTTP)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())
	// Everything else: /tentacle/<branch>/<path> and the Referer-based
	// fallback, both handled by the reverse proxy.
	s.mux.Handle("/", s.proxy)
}

// statusRecorder captures the status code a wrapped handler wrote, so
// instrument can label the request metrics after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with the APIRequestsTotal/APIRequestDuration
// metrics the teacher's pkg/metrics already defines, relabeled here to
// method + final status code.
func (s *Server) instrument(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, method)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleListTentacles(w http.ResponseWriter, r *http.Request) {
	snapshot := s.fleet.Snapshot(func(branch string) string {
		return "/tentacle/" + branch + "/"
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tentacles":      snapshot,
		"total":          len(snapshot),
		"known_branches": s.fleet.KnownBranches(),
	})
}

func (s *Server) handleTentacleLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	kind := r.PathValue("kind")

	sup := s.fleet.Find(name)
	if sup == nil {
		http.Error(w, fmt.Sprintf("Tentacle '%s' not found", name), http.StatusNotFound)
		return
	}

	logs, err := sup.GetLogs(kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	clean := false
	if raw := r.PathValue("clean"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid clean value %q", raw), http.StatusBadRequest)
			return
		}
		clean = v
	}

	sup := s.fleet.Find(name)
	if sup == nil {
		http.Error(w, fmt.Sprintf("Tentacle '%s' not found", name), http.StatusNotFound)
		return
	}

	if err := sup.Update(r.Context(), clean); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_clean": clean})
}

func (s *Server) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": s.fleet.SystemLog()})
}

// fleetStatusProvider adapts *fleet.Fleet to events.StatusProvider so
// the websocket hub can answer request_status/request_logs without
// pkg/events importing pkg/fleet.
type fleetStatusProvider struct {
	fleet *fleet.Fleet
}

func (p *fleetStatusProvider) Snapshot() interface{} {
	snapshot := p.fleet.Snapshot(func(branch string) string {
		return "/tentacle/" + branch + "/"
	})
	return map[string]interface{}{
		"tentacles": snapshot,
		"total":     len(snapshot),
	}
}

func (p *fleetStatusProvider) Logs(branch, kind string) (interface{}, bool) {
	sup := p.fleet.Find(branch)
	if sup == nil {
		return nil, false
	}
	logs, err := sup.GetLogs(kind)
	if err != nil {
		return nil, false
	}
	return logs, true
}
