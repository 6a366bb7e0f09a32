// Package api exposes the HTTP surface: the inbound reply webhook, the
// read-side endpoints the UI consumes, a manual trigger path, and an SSE
// event stream.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/outboundhq/pipeline-orchestrator/internal/orchestrator"
	"github.com/outboundhq/pipeline-orchestrator/internal/scheduler"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// Server is the HTTP API server
type Server struct {
	store  *store.Store
	orch   *orchestrator.Orchestrator
	sched  *scheduler.Scheduler
	addr   string
	mux    *http.ServeMux
	sseHub *SSEHub
}

// NewServer creates a new API server
func NewServer(st *store.Store, orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, addr string) *Server {
	s := &Server{
		store:  st,
		orch:   orch,
		sched:  sched,
		addr:   addr,
		mux:    http.NewServeMux(),
		sseHub: NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/webhooks/reply", s.replyWebhookHandler())
	s.mux.HandleFunc("GET /api/status", s.statusHandler())
	s.mux.HandleFunc("GET /api/prospects", s.listProspectsHandler())
	s.mux.HandleFunc("GET /api/prospects/{id}", s.getProspectHandler())
	s.mux.HandleFunc("GET /api/notifications", s.listNotificationsHandler())
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.markNotificationReadHandler())
	s.mux.HandleFunc("POST /api/trigger", s.triggerHandler())
	s.mux.HandleFunc("GET /api/events", s.sseHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler returns the route mux, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
