package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// EventData is the payload pushed to SSE clients for one pipeline event.
// Fields are optional; a reply-received event has no agent type, a task
// event always names one.
type EventData struct {
	TaskID     string           `json:"task_id,omitempty"`
	AgentType  domain.AgentType `json:"agent_type,omitempty"`
	ProspectID string           `json:"prospect_id,omitempty"`
	Detail     string           `json:"detail,omitempty"`
}

// SSEEvent is one named event on the stream. Type becomes the SSE event
// name, the data frame carries the JSON payload.
type SSEEvent struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// SSEHub fans pipeline events out to connected clients. All client
// bookkeeping happens on the Run goroutine; register, unregister and
// broadcast are channel handoffs, so no lock is needed.
type SSEHub struct {
	clients    map[chan SSEEvent]bool
	broadcast  chan SSEEvent
	register   chan chan SSEEvent
	unregister chan chan SSEEvent
}

// NewSSEHub creates a hub. Call Run on its own goroutine before
// broadcasting.
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients:    make(map[chan SSEEvent]bool),
		broadcast:  make(chan SSEEvent, 16),
		register:   make(chan chan SSEEvent),
		unregister: make(chan chan SSEEvent),
	}
}

// Run owns the client set and serves registrations and broadcasts until
// the process exits.
func (h *SSEHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}

		case event := <-h.broadcast:
			for client := range h.clients {
				select {
				case client <- event:
				default:
					// Slow clients are dropped rather than blocking the hub.
					close(client)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast queues an event for all connected clients.
func (h *SSEHub) Broadcast(event SSEEvent) {
	h.broadcast <- event
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		client := make(chan SSEEvent, 8)
		s.sseHub.register <- client

		done := r.Context().Done()
		go func() {
			<-done
			s.sseHub.unregister <- client
		}()

		for event := range client {
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
