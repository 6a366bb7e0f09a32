// Package scheduler is the only source of time-driven work: it drains the
// task queue, scans follow-up sequences, prunes old terminal tasks, and
// emits a periodic health snapshot, each on its own cron interval.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/orchestrator"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// Config holds the cron expressions and retention window for the periodic
// jobs. Zero values fall back to the defaults below.
type Config struct {
	DrainCron    string
	FollowUpCron string
	CleanupCron  string
	SnapshotCron string

	// RetentionDays bounds how long completed/failed tasks stay visible.
	RetentionDays int
}

func (c Config) withDefaults() Config {
	if c.DrainCron == "" {
		c.DrainCron = "* * * * *"
	}
	if c.FollowUpCron == "" {
		c.FollowUpCron = "*/5 * * * *"
	}
	if c.CleanupCron == "" {
		c.CleanupCron = "30 3 * * *"
	}
	if c.SnapshotCron == "" {
		c.SnapshotCron = "0 * * * *"
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	return c
}

type job struct {
	name     string
	schedule cron.Schedule
	lastRun  time.Time
	run      func(ctx context.Context, now time.Time) error
}

// shouldRun reports whether the job's next scheduled time since its last
// run has passed.
func (j *job) shouldRun(now time.Time) bool {
	lastRun := j.lastRun
	if lastRun.IsZero() {
		lastRun = now.Add(-24 * time.Hour)
	}
	return now.After(j.schedule.Next(lastRun))
}

// Scheduler runs the periodic jobs on a single timeline. Jobs execute
// sequentially; there is no parallel dispatch within a tick.
type Scheduler struct {
	store     *store.Store
	orch      *orchestrator.Orchestrator
	retention time.Duration
	jobs      []*job
	stopChan  chan struct{}
}

// New creates a scheduler with the given cron configuration.
func New(st *store.Store, orch *orchestrator.Orchestrator, cfg Config) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	s := &Scheduler{
		store:     st,
		orch:      orch,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		stopChan:  make(chan struct{}),
	}

	for _, spec := range []struct {
		name string
		cron string
		run  func(ctx context.Context, now time.Time) error
	}{
		{"drain", cfg.DrainCron, s.runDrain},
		{"followup_scan", cfg.FollowUpCron, s.runFollowUpScan},
		{"cleanup", cfg.CleanupCron, s.runCleanup},
		{"snapshot", cfg.SnapshotCron, s.runSnapshot},
	} {
		schedule, err := parser.Parse(spec.cron)
		if err != nil {
			return nil, fmt.Errorf("parsing %s cron %q: %w", spec.name, spec.cron, err)
		}
		s.jobs = append(s.jobs, &job{name: spec.name, schedule: schedule, run: spec.run})
	}

	return s, nil
}

// Run starts the tick loop and blocks until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return nil
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// tick runs every due job sequentially. Returns how many jobs ran.
func (s *Scheduler) tick(ctx context.Context, now time.Time) int {
	ran := 0
	for _, j := range s.jobs {
		if !j.shouldRun(now) {
			continue
		}
		j.lastRun = now
		ran++
		if err := j.run(ctx, now); err != nil {
			log.Printf("[scheduler] %s: %v", j.name, err)
		}
	}
	return ran
}

func (s *Scheduler) runDrain(ctx context.Context, now time.Time) error {
	n, err := s.orch.ProcessPendingBatch(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[scheduler] drained %d task(s)", n)
	}
	return nil
}

// runFollowUpScan turns elapsed time into follow-up work. This scan is
// the sole mechanism that enqueues cadence sends; follow-up tasks never
// reschedule themselves. Prospect eligibility is re-checked inside the
// due-sequence query, at scan time.
func (s *Scheduler) runFollowUpScan(ctx context.Context, now time.Time) error {
	due, err := s.store.DueSequences(now)
	if err != nil {
		return err
	}
	for _, seq := range due {
		if _, err := s.orch.Enqueue(domain.AgentFollowUp, seq.ProspectID, domain.FollowUpPayload{}, nil); err != nil {
			return err
		}
	}
	if len(due) > 0 {
		log.Printf("[scheduler] enqueued %d follow-up(s)", len(due))
	}
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context, now time.Time) error {
	n, err := s.store.DeleteTerminalTasksBefore(now.Add(-s.retention))
	if err != nil {
		return err
	}
	m, err := s.store.DeleteNotificationsBefore(now.Add(-3 * s.retention))
	if err != nil {
		return err
	}
	if n > 0 || m > 0 {
		log.Printf("[scheduler] cleanup removed %d task(s), %d notification(s)", n, m)
	}
	return nil
}

// runSnapshot logs task counts by status. Observability only.
func (s *Scheduler) runSnapshot(ctx context.Context, now time.Time) error {
	counts, err := s.store.CountTasksByStatus()
	if err != nil {
		return err
	}
	log.Printf("[scheduler] tasks: pending=%d processing=%d completed=%d failed=%d",
		counts[domain.TaskPending], counts[domain.TaskProcessing],
		counts[domain.TaskCompleted], counts[domain.TaskFailed])
	return nil
}

// TriggerAgent is the manual path: enqueue one task and drain on demand
// so the caller does not wait for the next tick.
func (s *Scheduler) TriggerAgent(ctx context.Context, agentType domain.AgentType, prospectID string, payload domain.TaskPayload) (string, error) {
	id, err := s.orch.Enqueue(agentType, prospectID, payload, nil)
	if err != nil {
		return "", err
	}
	if _, err := s.orch.ProcessPendingBatch(ctx); err != nil {
		return id, err
	}
	return id, nil
}
