// Package agent implements the four pipeline agents: outreach, follow-up,
// response classifier, and stage manager. Agents convert locally
// recoverable conditions into skip or draft outcomes at their boundary;
// only true transient failures escape as errors for the orchestrator's
// retry mechanism.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// Agent is one unit of autonomous work. Execute receives the task's
// decoded payload and a settings snapshot taken at drain time; agents
// never read the settings store directly.
type Agent interface {
	Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error)
}

// Enqueuer lets agents schedule further work. Nested enqueues only add
// pending rows; they are never drained within the same dispatch.
type Enqueuer interface {
	Enqueue(agentType domain.AgentType, prospectID string, payload domain.TaskPayload, scheduledFor *time.Time) (string, error)
}

// TerminalError marks a failure retrying cannot fix: a misconfigured
// collaborator or a prospect that no longer exists. The orchestrator fails
// the task immediately instead of re-queueing it.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return e.Err.Error() }
func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err as a TerminalError.
func Terminal(err error) error {
	return &TerminalError{Err: err}
}

// recordNotification persists a user-facing alert.
func recordNotification(st *store.Store, typ domain.NotificationType, title, message, prospectID, actionRef string) error {
	return st.CreateNotification(&domain.Notification{
		ID:         uuid.NewString(),
		Type:       typ,
		Title:      title,
		Message:    message,
		ProspectID: prospectID,
		ActionRef:  actionRef,
		CreatedAt:  time.Now(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
