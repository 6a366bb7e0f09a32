package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/llm"
	"github.com/outboundhq/pipeline-orchestrator/internal/mailer"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// FollowUp sends the next cadence email for a prospect's sequence. An
// exhausted cadence with no reply gives up: the prospect is moved to lost
// through the stage state machine.
type FollowUp struct {
	store  *store.Store
	llm    llm.Completer
	mailer mailer.Sender
	stages *StageManager
}

// NewFollowUp creates the follow-up agent.
func NewFollowUp(st *store.Store, completer llm.Completer, sender mailer.Sender, stages *StageManager) *FollowUp {
	return &FollowUp{store: st, llm: completer, mailer: sender, stages: stages}
}

// Execute runs one follow-up attempt. Eligibility is re-checked here, not
// only at enqueue time, because ticks may pass between the two.
func (a *FollowUp) Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error) {
	p, err := a.store.GetProspect(prospectID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Outcome{}, Terminal(fmt.Errorf("prospect %s: %w", prospectID, err))
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	if !p.AutomationEnabled {
		return domain.Skipped("automation disabled for prospect"), nil
	}
	if p.Stage != domain.StageContacted {
		return domain.Skipped(fmt.Sprintf("prospect is in stage %q, not contacted", p.Stage)), nil
	}

	seq, err := a.store.GetSequenceByProspect(p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Skipped("no follow-up sequence"), nil
	}
	if err != nil {
		return domain.Outcome{}, err
	}
	if seq.IsPaused {
		return domain.Skipped("sequence is paused"), nil
	}

	// Cadence exhausted with silence: give up instead of sending.
	if seq.Step >= seq.MaxSteps {
		out, err := a.stages.TransitionTo(ctx, p, domain.StageLost,
			fmt.Sprintf("no response after %d follow-ups", seq.MaxSteps), settings)
		if err != nil {
			return out, err
		}
		return domain.Done("cadence exhausted; prospect marked lost"), nil
	}

	nextStep := seq.Step + 1
	email, err := generateEmail(ctx, a.llm, followUpPrompt(p, nextStep, seq.MaxSteps))
	if errors.Is(err, llm.ErrUnavailable) {
		return domain.Outcome{}, Terminal(err)
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	campaign := &domain.Campaign{
		ID:         uuid.NewString(),
		ProspectID: p.ID,
		Kind:       domain.CampaignFollowUp,
		Subject:    email.Subject,
		Body:       email.Body,
		Status:     domain.CampaignPending,
		CreatedAt:  time.Now(),
	}
	if err := a.store.CreateCampaign(campaign); err != nil {
		return domain.Outcome{}, err
	}

	if p.Email == "" {
		if err := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignDraft, nil); err != nil {
			return domain.Outcome{}, err
		}
		return domain.Done("saved as draft: prospect has no email address"), nil
	}
	if !a.mailer.Ready() {
		if err := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignDraft, nil); err != nil {
			return domain.Outcome{}, err
		}
		return domain.Done("saved as draft: delivery service not configured"), nil
	}

	_, err = a.mailer.Send(ctx, mailer.Message{
		To:      p.Email,
		Subject: email.Subject,
		Body:    email.Body,
		Tags:    []string{"followup"},
	})
	if err != nil {
		if uerr := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignFailed, nil); uerr != nil {
			return domain.Outcome{}, uerr
		}
		return domain.Outcome{}, fmt.Errorf("sending follow-up email: %w", err)
	}

	now := time.Now()
	if err := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignSent, &now); err != nil {
		return domain.Outcome{}, err
	}

	// Advance the cadence: the offset at the new step index decides the
	// next send, falling back to the last offset for short schedules.
	next := now.Add(time.Duration(seq.NextOffset(nextStep)) * 24 * time.Hour)
	if err := a.store.AdvanceSequence(seq.ID, nextStep, now, next); err != nil {
		return domain.Outcome{}, err
	}
	if err := a.store.LogActivity(p.ID, "email_sent",
		fmt.Sprintf("follow-up %d of %d sent: %s", nextStep, seq.MaxSteps, email.Subject)); err != nil {
		return domain.Outcome{}, err
	}

	return domain.Done(fmt.Sprintf("follow-up %d of %d sent", nextStep, seq.MaxSteps)), nil
}
