package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

type replyWebhookRequest struct {
	ProspectID string `json:"prospect_id"`
	Text       string `json:"text"`
	Subject    string `json:"subject,omitempty"`
}

// replyWebhookHandler is the inbound reply ingestion path. It bypasses
// the normal outreach flow: besides enqueueing classification it pauses
// the cadence immediately and bumps early-stage prospects to responded,
// so no automated mail goes out while the classifier task waits its turn.
func (s *Server) replyWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ProspectID == "" || req.Text == "" {
			writeError(w, http.StatusBadRequest, "prospect_id and text are required")
			return
		}

		p, err := s.store.GetProspect(req.ProspectID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown prospect")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		taskID, err := s.orch.Enqueue(domain.AgentClassifier, p.ID, domain.ClassifyPayload{
			Text:    req.Text,
			Subject: req.Subject,
		}, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := s.store.PauseSequence(p.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if p.Stage == domain.StageNew || p.Stage == domain.StageContacted {
			if err := s.store.UpdateProspectStage(p.ID, domain.StageResponded); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		if err := s.store.LogActivity(p.ID, "reply_received", "inbound reply received"); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.Broadcast(SSEEvent{Type: "reply_received", Data: EventData{
			ProspectID: p.ID,
			TaskID:     taskID,
		}})
		writeJSON(w, map[string]string{"task_id": taskID})
	}
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := s.store.CountTasksByStatus()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		stages, err := s.store.CountProspectsByStage()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{
			"tasks":     tasks,
			"prospects": stages,
		})
	}
}

func (s *Server) listProspectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListProspectsOptions{}
		if stage := r.URL.Query().Get("stage"); stage != "" {
			opts.Stage = domain.Stage(stage)
		}
		prospects, err := s.store.ListProspects(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, prospects)
	}
}

func (s *Server) getProspectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, err := s.store.GetProspect(id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown prospect")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		detail := map[string]interface{}{"prospect": p}
		if seq, err := s.store.GetSequenceByProspect(id); err == nil {
			detail["sequence"] = seq
		}
		if activities, err := s.store.ListActivities(id, 50); err == nil {
			detail["activities"] = activities
		}
		writeJSON(w, detail)
	}
}

func (s *Server) listNotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unreadOnly := r.URL.Query().Get("unread") == "1"
		notifications, err := s.store.ListNotifications(unreadOnly, 100)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, notifications)
	}
}

func (s *Server) markNotificationReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.MarkNotificationRead(r.PathValue("id")); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	}
}

type triggerRequest struct {
	AgentType  string          `json:"agent_type"`
	ProspectID string          `json:"prospect_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// triggerHandler is the operator-initiated path: enqueue a single task
// and drain on demand.
func (s *Server) triggerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		payload, err := domain.DecodePayload(domain.AgentType(req.AgentType), req.Payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		taskID, err := s.sched.TriggerAgent(r.Context(), domain.AgentType(req.AgentType), req.ProspectID, payload)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"task_id": taskID})
	}
}
