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

// Outreach generates and delivers the initial contact email, then moves
// the prospect into the contacted stage.
type Outreach struct {
	store  *store.Store
	llm    llm.Completer
	mailer mailer.Sender
	stages *StageManager
}

// NewOutreach creates the outreach agent.
func NewOutreach(st *store.Store, completer llm.Completer, sender mailer.Sender, stages *StageManager) *Outreach {
	return &Outreach{store: st, llm: completer, mailer: sender, stages: stages}
}

// Execute runs one outreach attempt. Duplicate initial contact is guarded
// here: any prior campaign for the prospect, a disabled automation flag,
// or the global toggle all skip execution entirely.
func (a *Outreach) Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error) {
	p, err := a.store.GetProspect(prospectID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Outcome{}, Terminal(fmt.Errorf("prospect %s: %w", prospectID, err))
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	if !settings.AutoOutreach {
		return domain.Skipped("outreach automation disabled globally"), nil
	}
	if !p.AutomationEnabled {
		return domain.Skipped("automation disabled for prospect"), nil
	}
	existing, err := a.store.CountCampaigns(p.ID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if existing > 0 {
		return domain.Skipped("prospect already has a campaign"), nil
	}

	email, err := generateEmail(ctx, a.llm, outreachPrompt(p))
	if errors.Is(err, llm.ErrUnavailable) {
		return domain.Outcome{}, Terminal(err)
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	campaign := &domain.Campaign{
		ID:         uuid.NewString(),
		ProspectID: p.ID,
		Kind:       domain.CampaignOutreach,
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
		Tags:    []string{"outreach"},
	})
	if err != nil {
		if uerr := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignFailed, nil); uerr != nil {
			return domain.Outcome{}, uerr
		}
		return domain.Outcome{}, fmt.Errorf("sending outreach email: %w", err)
	}

	now := time.Now()
	if err := a.store.UpdateCampaignStatus(campaign.ID, domain.CampaignSent, &now); err != nil {
		return domain.Outcome{}, err
	}
	if err := a.store.LogActivity(p.ID, "email_sent", "outreach email sent: "+email.Subject); err != nil {
		return domain.Outcome{}, err
	}

	// First contact moves new prospects into the cadence; the contacted
	// entry effect seeds the follow-up sequence.
	if p.Stage == domain.StageNew {
		if _, err := a.stages.TransitionTo(ctx, p, domain.StageContacted, "initial outreach sent", settings); err != nil {
			return domain.Outcome{}, err
		}
	}

	return domain.Done("outreach email sent"), nil
}
