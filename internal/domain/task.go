package domain

import (
	"time"
)

// AgentType identifies which agent a task is dispatched to. The set is
// closed; wiring happens once at startup.
type AgentType string

const (
	AgentOutreach     AgentType = "outreach"
	AgentFollowUp     AgentType = "followup"
	AgentClassifier   AgentType = "response_classifier"
	AgentStageManager AgentType = "stage_manager"
)

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// MaxAttempts caps task retries. A task that errors this many times is
// failed permanently and left visible until retention cleanup.
const MaxAttempts = 3

// Task is one scheduled unit of agent work. Status transitions are owned
// exclusively by the orchestrator.
type Task struct {
	ID           string
	AgentType    AgentType
	ProspectID   string
	Payload      []byte // JSON, decoded once at dispatch time
	Status       TaskStatus
	ScheduledFor *time.Time // nil means run on the next drain
	Attempts     int
	Result       string
	Error        string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Due reports whether the task is drainable at now.
func (t *Task) Due(now time.Time) bool {
	if t.Status != TaskPending {
		return false
	}
	return t.ScheduledFor == nil || !t.ScheduledFor.After(now)
}

// OutcomeStatus classifies how an agent execution ended without erroring.
type OutcomeStatus string

const (
	// OutcomeDone means the agent did its work.
	OutcomeDone OutcomeStatus = "done"
	// OutcomeSkipped means the agent's own preconditions were unmet
	// (automation off, wrong stage, duplicate). Never retried.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeRejected means domain validation refused the operation, e.g.
	// an illegal stage transition. A normal result, not a fault.
	OutcomeRejected OutcomeStatus = "rejected"
)

// Outcome is the structured result of one agent execution.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Done returns a successful outcome with an optional summary.
func Done(reason string) Outcome { return Outcome{Status: OutcomeDone, Reason: reason} }

// Skipped returns a skip outcome with the unmet precondition.
func Skipped(reason string) Outcome { return Outcome{Status: OutcomeSkipped, Reason: reason} }

// Rejected returns a domain-validation refusal.
func Rejected(reason string) Outcome { return Outcome{Status: OutcomeRejected, Reason: reason} }
