package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/llm"
	"github.com/outboundhq/pipeline-orchestrator/internal/store"
)

// Classifier interprets inbound replies. The model does the reading; this
// agent only defines the closed label set and what each label does to the
// pipeline. Stage changes are enqueued as stage manager tasks, never
// applied inline.
type Classifier struct {
	store *store.Store
	llm   llm.Completer
	queue Enqueuer
}

// NewClassifier creates the response classifier agent.
func NewClassifier(st *store.Store, completer llm.Completer, queue Enqueuer) *Classifier {
	return &Classifier{store: st, llm: completer, queue: queue}
}

type classifyResult struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Summary        string  `json:"summary"`
}

// Execute classifies one reply and applies the mapped effects.
func (a *Classifier) Execute(ctx context.Context, prospectID string, payload domain.TaskPayload, settings domain.Settings) (domain.Outcome, error) {
	reply, ok := payload.(domain.ClassifyPayload)
	if !ok {
		return domain.Outcome{}, Terminal(fmt.Errorf("classifier got %T payload", payload))
	}

	p, err := a.store.GetProspect(prospectID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Outcome{}, Terminal(fmt.Errorf("prospect %s: %w", prospectID, err))
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	// Fallback state, not a failure: record the raw text for a human.
	if !settings.AutoClassify {
		if err := a.store.LogActivity(p.ID, "reply_received",
			"auto-classification disabled; reply recorded for manual review: "+truncate(reply.Text, 500)); err != nil {
			return domain.Outcome{}, err
		}
		if err := recordNotification(a.store, domain.NotifyReview,
			"Reply needs manual review", fmt.Sprintf("%s replied; auto-classification is off", p.Name),
			p.ID, "/prospects/"+p.ID); err != nil {
			return domain.Outcome{}, err
		}
		return domain.Done("auto-classification disabled; reply recorded for manual review"), nil
	}

	history, err := a.store.ListSentCampaigns(p.ID, 3)
	if err != nil {
		return domain.Outcome{}, err
	}

	comp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:       classifyPrompt(reply, history),
		SystemPrompt: classifySystemPrompt,
		MaxTokens:    512,
		Temperature:  0,
		ForceJSON:    true,
	})
	if errors.Is(err, llm.ErrUnavailable) {
		return domain.Outcome{}, Terminal(err)
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	var result classifyResult
	if err := json.Unmarshal([]byte(comp.Text), &result); err != nil {
		result = classifyResult{Classification: string(domain.ClassUnclear), Summary: "unparseable model response"}
	}
	class := domain.ParseClassification(result.Classification)

	// A reply means a human should look before more automated mail goes out.
	if err := a.store.PauseSequence(p.ID); err != nil {
		return domain.Outcome{}, err
	}

	if err := a.applyEffects(p, class); err != nil {
		return domain.Outcome{}, err
	}

	if err := a.store.LogActivity(p.ID, "reply_classified",
		fmt.Sprintf("reply classified %s (%.2f): %s", class, result.Confidence, result.Summary)); err != nil {
		return domain.Outcome{}, err
	}

	return domain.Done(fmt.Sprintf("classified %s (%.2f)", class, result.Confidence)), nil
}

// applyEffects maps a classification onto pipeline effects. Stage changes
// are only ever forward or to lost; anything that would walk the prospect
// backward is a no-op.
func (a *Classifier) applyEffects(p *domain.Prospect, class domain.Classification) error {
	if target := class.TargetStage(); target != "" {
		// A forward target more than one step ahead is walked stage by
		// stage so every intermediate entry effect fires. The FIFO drain
		// applies the tasks in order.
		steps := domain.ForwardPath(p.Stage, target)
		if target == domain.StageLost {
			steps = []domain.Stage{domain.StageLost}
		}
		for _, step := range steps {
			_, err := a.queue.Enqueue(domain.AgentStageManager, p.ID, domain.StagePayload{
				Target: step,
				Reason: "reply classified " + string(class),
			}, nil)
			if err != nil {
				return err
			}
		}
	}

	switch class {
	case domain.ClassInterested:
		return recordNotification(a.store, domain.NotifyReply,
			"Prospect interested", fmt.Sprintf("%s sounds interested — reply personally", p.Name),
			p.ID, "/prospects/"+p.ID)
	case domain.ClassQuestion:
		return recordNotification(a.store, domain.NotifyQuestion,
			"Prospect asked a question", fmt.Sprintf("%s asked a question that needs an answer", p.Name),
			p.ID, "/prospects/"+p.ID)
	case domain.ClassUnclear:
		return recordNotification(a.store, domain.NotifyReview,
			"Reply needs manual review", fmt.Sprintf("Could not confidently classify the reply from %s", p.Name),
			p.ID, "/prospects/"+p.ID)
	}
	return nil
}
