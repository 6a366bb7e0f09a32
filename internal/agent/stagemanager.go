package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/notify"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// StageManager owns the pipeline stage state machine: which transitions
// are legal and what entering a stage does. Outreach and FollowUp route
// their own stage changes through it so side effects fire exactly once.
type StageManager struct {
	store  *store.Store
	alerts notify.Notifier
}

// NewStageManager creates a stage manager. alerts may be a NoopNotifier.
func NewStageManager(st *store.Store, alerts notify.Notifier) *StageManager {
	return &StageManager{store: st, alerts: alerts}
}

// Execute handles a queued stage transition request.
func (m *StageManager) Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error) {
	sp, ok := payload.(domain.StagePayload)
	if !ok {
		return domain.Outcome{}, Terminal(fmt.Errorf("stage manager got %T payload", payload))
	}

	p, err := m.store.GetProspect(prospectID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Outcome{}, Terminal(fmt.Errorf("prospect %s: %w", prospectID, err))
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	return m.TransitionTo(ctx, p, sp.Target, sp.Reason, settings)
}

// TransitionTo moves a prospect to target if the transition table allows
// it. An illegal transition is a rejected outcome, not an error; callers
// treat it as a normal result.
func (m *StageManager) TransitionTo(ctx context.Context, p *domain.Prospect, target domain.Stage, reason string, settings domain.Settings) (domain.Outcome, error) {
	if err := domain.ValidateTransition(p.Stage, target); err != nil {
		return domain.Rejected(err.Error()), nil
	}

	from := p.Stage
	if err := m.store.UpdateProspectStage(p.ID, target); err != nil {
		return domain.Outcome{}, err
	}
	p.Stage = target

	if err := m.applyEntryEffects(p, settings); err != nil {
		return domain.Outcome{}, err
	}

	desc := fmt.Sprintf("stage %s → %s", from, target)
	if reason != "" {
		desc += ": " + reason
	}
	if err := m.store.LogActivity(p.ID, "stage_change", desc); err != nil {
		return domain.Outcome{}, err
	}

	return domain.Done(fmt.Sprintf("stage %s → %s", from, target)), nil
}

// applyEntryEffects runs the side effects of entering p.Stage.
func (m *StageManager) applyEntryEffects(p *domain.Prospect, settings domain.Settings) error {
	switch p.Stage {
	case domain.StageContacted:
		return m.ensureSequence(p, settings)

	case domain.StageResponded:
		// A human or the classifier decided further cadence is wrong.
		return m.store.PauseSequence(p.ID)

	case domain.StageMeetingScheduled:
		if err := m.store.SetAutomationEnabled(p.ID, false); err != nil {
			return err
		}
		p.AutomationEnabled = false
		if err := recordNotification(m.store, domain.NotifyMeeting,
			"Meeting requested", fmt.Sprintf("%s wants to schedule a meeting", p.Name),
			p.ID, "/prospects/"+p.ID); err != nil {
			return err
		}
		m.alerts.Send(notify.Alert{
			Title:      "Meeting requested",
			Message:    fmt.Sprintf("%s wants to schedule a meeting — automation handed off", p.Name),
			Level:      notify.AlertWarning,
			ProspectID: p.ID,
			ActionRef:  "/prospects/" + p.ID,
		})
		return nil

	case domain.StageWon:
		if err := recordNotification(m.store, domain.NotifyWin,
			"Deal won", fmt.Sprintf("%s is now a customer", p.Name),
			p.ID, "/prospects/"+p.ID); err != nil {
			return err
		}
		m.alerts.Send(notify.Alert{
			Title:      "Deal won",
			Message:    fmt.Sprintf("%s is now a customer 🎉", p.Name),
			Level:      notify.AlertSuccess,
			ProspectID: p.ID,
		})
		return nil

	case domain.StageLost:
		if err := m.store.SetAutomationEnabled(p.ID, false); err != nil {
			return err
		}
		p.AutomationEnabled = false
		return m.store.PauseSequence(p.ID)
	}
	return nil
}

// ensureSequence creates the follow-up sequence on first contact, seeded
// from the current cadence configuration. Idempotent.
func (m *StageManager) ensureSequence(p *domain.Prospect, settings domain.Settings) error {
	_, err := m.store.GetSequenceByProspect(p.ID)
	if err == nil {
		return nil // already exists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	offsets := settings.FollowUpDays
	if len(offsets) == 0 {
		offsets = domain.ParseDayOffsets(domain.DefaultFollowUpDays)
	}
	now := time.Now()
	next := now.Add(time.Duration(offsets[0]) * 24 * time.Hour)
	return m.store.CreateSequence(&domain.FollowUpSequence{
		ID:          uuid.NewString(),
		ProspectID:  p.ID,
		Step:        0,
		MaxSteps:    len(offsets),
		DaysBetween: domain.FormatDayOffsets(offsets),
		NextSendAt:  &next,
		CreatedAt:   now,
	})
}
