// Package orchestrator owns the task lifecycle: enqueue, drain, dispatch,
// and retry. Status transitions happen only here; agents never touch task
// rows directly.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/outboundhq/pipeline-orchestrator/internal/agent"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// DefaultBatchSize bounds per-tick work. Together with the tick interval
// this is the system's backpressure: bursts smooth out across ticks
// instead of hammering the providers.
const DefaultBatchSize = 10

// Event describes a task lifecycle change for observers (SSE, logs).
type Event struct {
	Type       string           `json:"type"`
	TaskID     string           `json:"task_id"`
	AgentType  domain.AgentType `json:"agent_type"`
	ProspectID string           `json:"prospect_id"`
	Detail     string           `json:"detail,omitempty"`
}

// Orchestrator dispatches queued tasks to their agents.
type Orchestrator struct {
	store     *store.Store
	agents    map[domain.AgentType]agent.Agent
	batchSize int

	// mu serializes batch processing. The scheduler tick and the manual
	// trigger path both drain the queue; only one batch runs at a time.
	mu sync.Mutex

	// OnEvent, when set, receives task lifecycle events. Called inline;
	// keep it fast.
	OnEvent func(Event)
}

// New creates an orchestrator. Agents are bound separately because they
// need the orchestrator as their Enqueuer.
func New(st *store.Store, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Orchestrator{store: st, batchSize: batchSize}
}

// Bind wires the closed agent set. Called once at startup.
func (o *Orchestrator) Bind(agents map[domain.AgentType]agent.Agent) {
	o.agents = agents
}

// Enqueue inserts a pending task. No uniqueness is enforced here;
// duplicate suppression is each agent's responsibility.
func (o *Orchestrator) Enqueue(agentType domain.AgentType, prospectID string, payload domain.TaskPayload, scheduledFor *time.Time) (string, error) {
	raw, err := domain.EncodePayload(payload)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	task := &domain.Task{
		ID:           uuid.NewString(),
		AgentType:    agentType,
		ProspectID:   prospectID,
		Payload:      raw,
		Status:       domain.TaskPending,
		ScheduledFor: scheduledFor,
		CreatedAt:    time.Now(),
	}
	if err := o.store.CreateTask(task); err != nil {
		return "", err
	}

	o.emit(Event{Type: "task_enqueued", TaskID: task.ID, AgentType: agentType, ProspectID: prospectID})
	return task.ID, nil
}

// DrainDue returns pending tasks whose time has arrived, in creation
// order, bounded by limit.
func (o *Orchestrator) DrainDue(limit int) ([]*domain.Task, error) {
	return o.store.DueTasks(time.Now(), limit)
}

// ProcessPendingBatch drains due tasks and dispatches them one at a time,
// in FIFO order. Returns how many were attempted. Both the scheduler tick
// and the manual trigger path land here; the mutex keeps them from
// interleaving, and the per-task claim in Dispatch guards any drain that
// still races a concurrent writer.
func (o *Orchestrator) ProcessPendingBatch(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	settings, err := o.store.LoadSettings()
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}

	tasks, err := o.DrainDue(o.batchSize)
	if err != nil {
		return 0, fmt.Errorf("draining tasks: %w", err)
	}

	for _, task := range tasks {
		if err := o.Dispatch(ctx, task, settings); err != nil {
			log.Printf("[orchestrator] dispatch %s (%s): %v", task.ID, task.AgentType, err)
		}
	}
	return len(tasks), nil
}

// Dispatch runs one task through its agent and records the result. The
// task is claimed first: a task another dispatcher already picked up is
// silently skipped, so no task ever executes twice. Agent errors are
// retried up to the attempt cap by resetting the task to pending; a later
// tick re-drains it. Terminal errors and unregistered agent types fail
// immediately.
func (o *Orchestrator) Dispatch(ctx context.Context, task *domain.Task, settings domain.Settings) error {
	claimed, err := o.store.ClaimTask(task.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	a, ok := o.agents[task.AgentType]
	if !ok {
		// Configuration error, not a transient fault; retrying cannot help.
		return o.fail(task, task.Attempts+1, fmt.Sprintf("no agent registered for type %q", task.AgentType))
	}

	payload, err := domain.DecodePayload(task.AgentType, task.Payload)
	if err != nil {
		return o.fail(task, task.Attempts+1, err.Error())
	}

	outcome, err := a.Execute(ctx, task.ProspectID, payload, settings)
	if err != nil {
		attempts := task.Attempts + 1

		var terminal *agent.TerminalError
		if errors.As(err, &terminal) {
			return o.fail(task, attempts, err.Error())
		}
		if attempts >= domain.MaxAttempts {
			return o.fail(task, attempts, err.Error())
		}
		if rerr := o.store.ReturnTaskForRetry(task.ID, attempts, err.Error()); rerr != nil {
			return rerr
		}
		o.emit(Event{Type: "task_retrying", TaskID: task.ID, AgentType: task.AgentType,
			ProspectID: task.ProspectID, Detail: err.Error()})
		return nil
	}

	result, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	if err := o.store.CompleteTask(task.ID, string(result), time.Now()); err != nil {
		return err
	}
	o.emit(Event{Type: "task_completed", TaskID: task.ID, AgentType: task.AgentType,
		ProspectID: task.ProspectID, Detail: string(outcome.Status)})
	return nil
}

func (o *Orchestrator) fail(task *domain.Task, attempts int, reason string) error {
	if err := o.store.FailTask(task.ID, attempts, reason, time.Now()); err != nil {
		return err
	}
	o.emit(Event{Type: "task_failed", TaskID: task.ID, AgentType: task.AgentType,
		ProspectID: task.ProspectID, Detail: reason})
	return nil
}

func (o *Orchestrator) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}
