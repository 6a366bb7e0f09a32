package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/outboundhq/pipeline-orchestrator/internal/agent"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/orchestrator"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

type doneAgent struct {
	calls int
}

func (a *doneAgent) Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error) {
	a.calls++
	return domain.Done(""), nil
}

func TestTick_CronGating(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, 10)
	orch.Bind(map[domain.AgentType]agent.Agent{})

	s, err := New(st, orch, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// First tick: every job's last run is treated as a day ago, all fire.
	t0 := time.Date(2026, 8, 28, 12, 0, 30, 0, time.UTC)
	if ran := s.tick(context.Background(), t0); ran != len(s.jobs) {
		t.Errorf("first tick ran %d jobs, want %d", ran, len(s.jobs))
	}

	// Fifteen seconds later nothing is due again.
	if ran := s.tick(context.Background(), t0.Add(15*time.Second)); ran != 0 {
		t.Errorf("second tick ran %d jobs, want 0", ran)
	}

	// Past the next minute boundary only the drain fires; the follow-up
	// scan runs every five minutes, cleanup and snapshot much less often.
	if ran := s.tick(context.Background(), t0.Add(35*time.Second)); ran != 1 {
		t.Errorf("third tick ran %d jobs, want 1 (drain)", ran)
	}
}

func TestTick_DrainDispatchesTasks(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, 10)
	stub := &doneAgent{}
	orch.Bind(map[domain.AgentType]agent.Agent{domain.AgentOutreach: stub})

	s, err := New(st, orch, Config{})
	if err != nil {
		t.Fatal(err)
	}

	id, err := orch.Enqueue(domain.AgentOutreach, "p-1", domain.OutreachPayload{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	s.tick(context.Background(), time.Now())

	if stub.calls != 1 {
		t.Errorf("agent calls = %d, want 1", stub.calls)
	}
	task, err := st.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
}

func TestFollowUpScan_EnqueuesDueSequences(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, 10)
	orch.Bind(map[domain.AgentType]agent.Agent{})

	s, err := New(st, orch, Config{})
	if err != nil {
		t.Fatal(err)
	}

	p := &domain.Prospect{
		ID: uuid.NewString(), Name: "Due Prospect",
		Stage: domain.StageContacted, AutomationEnabled: true,
	}
	if err := st.CreateProspect(p); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := st.CreateSequence(&domain.FollowUpSequence{
		ID: uuid.NewString(), ProspectID: p.ID,
		Step: 1, MaxSteps: 3, DaysBetween: domain.DefaultFollowUpDays,
		NextSendAt: &past, CreatedAt: past,
	}); err != nil {
		t.Fatal(err)
	}

	// A second prospect whose sequence is paused must not be picked up.
	paused := &domain.Prospect{
		ID: uuid.NewString(), Name: "Paused Prospect",
		Stage: domain.StageContacted, AutomationEnabled: true,
	}
	if err := st.CreateProspect(paused); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateSequence(&domain.FollowUpSequence{
		ID: uuid.NewString(), ProspectID: paused.ID,
		Step: 1, MaxSteps: 3, DaysBetween: domain.DefaultFollowUpDays,
		IsPaused: true, NextSendAt: &past, CreatedAt: past,
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.runFollowUpScan(context.Background(), time.Now()); err != nil {
		t.Fatalf("runFollowUpScan: %v", err)
	}

	tasks, err := st.DueTasks(time.Now(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].AgentType != domain.AgentFollowUp {
		t.Errorf("AgentType = %q, want followup", tasks[0].AgentType)
	}
	if tasks[0].ProspectID != p.ID {
		t.Errorf("ProspectID = %q, want the due prospect", tasks[0].ProspectID)
	}
}

func TestRunCleanup(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, 10)

	s, err := New(st, orch, Config{RetentionDays: 7})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	old := now.Add(-30 * 24 * time.Hour)

	oldDone := &domain.Task{
		ID: uuid.NewString(), AgentType: domain.AgentOutreach, ProspectID: "p",
		Payload: []byte("{}"), Status: domain.TaskPending, CreatedAt: old,
	}
	if err := st.CreateTask(oldDone); err != nil {
		t.Fatal(err)
	}
	if err := st.CompleteTask(oldDone.ID, "{}", old); err != nil {
		t.Fatal(err)
	}

	// Pending tasks survive cleanup regardless of age.
	oldPending := &domain.Task{
		ID: uuid.NewString(), AgentType: domain.AgentOutreach, ProspectID: "p",
		Payload: []byte("{}"), Status: domain.TaskPending, CreatedAt: old,
	}
	if err := st.CreateTask(oldPending); err != nil {
		t.Fatal(err)
	}

	if err := st.CreateNotification(&domain.Notification{
		ID: uuid.NewString(), Type: domain.NotifyReply,
		Title: "stale", CreatedAt: old.Add(-90 * 24 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.runCleanup(context.Background(), now); err != nil {
		t.Fatalf("runCleanup: %v", err)
	}

	if _, err := st.GetTask(oldDone.ID); err != store.ErrNotFound {
		t.Errorf("old completed task should be gone, got %v", err)
	}
	if _, err := st.GetTask(oldPending.ID); err != nil {
		t.Errorf("old pending task should survive, got %v", err)
	}
	notifications, err := st.ListNotifications(false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 0 {
		t.Errorf("stale notifications should be gone, got %d", len(notifications))
	}
}

func TestTriggerAgent(t *testing.T) {
	st := newTestStore(t)
	orch := orchestrator.New(st, 10)
	stub := &doneAgent{}
	orch.Bind(map[domain.AgentType]agent.Agent{domain.AgentStageManager: stub})

	s, err := New(st, orch, Config{})
	if err != nil {
		t.Fatal(err)
	}

	id, err := s.TriggerAgent(context.Background(), domain.AgentStageManager, "p-1",
		domain.StagePayload{Target: domain.StageLost, Reason: "manual"})
	if err != nil {
		t.Fatalf("TriggerAgent: %v", err)
	}

	// Processed synchronously, not left for the next tick.
	task, err := st.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
	if stub.calls != 1 {
		t.Errorf("agent calls = %d, want 1", stub.calls)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.DrainCron != "* * * * *" {
		t.Errorf("DrainCron = %q", cfg.DrainCron)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.RetentionDays)
	}

	st := newTestStore(t)
	if _, err := New(st, orchestrator.New(st, 1), Config{DrainCron: "not a cron"}); err == nil {
		t.Error("invalid cron should fail")
	}
}
