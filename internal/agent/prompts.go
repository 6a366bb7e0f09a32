package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/llm"
)

const emailSystemPrompt = `You write short, friendly B2B sales emails. ` +
	`Reply with a single JSON object: {"subject": "...", "body": "..."}. No other text.`

const classifySystemPrompt = `You classify inbound replies to sales emails. ` +
	`Reply with a single JSON object: {"classification": "...", "confidence": 0.0, "summary": "..."}. ` +
	`classification must be one of INTERESTED, NOT_INTERESTED, QUESTION, MEETING_REQUEST, OUT_OF_OFFICE, UNCLEAR.`

type generatedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// generateEmail asks the provider for a subject and body. A response that
// is not valid JSON is still usable: the raw text becomes the body.
func generateEmail(ctx context.Context, completer llm.Completer, prompt string) (generatedEmail, error) {
	comp, err := completer.Complete(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: emailSystemPrompt,
		MaxTokens:    1024,
		Temperature:  0.7,
		ForceJSON:    true,
	})
	if err != nil {
		return generatedEmail{}, err
	}

	var email generatedEmail
	if err := json.Unmarshal([]byte(comp.Text), &email); err != nil || email.Body == "" {
		return generatedEmail{Subject: "Following up", Body: strings.TrimSpace(comp.Text)}, nil
	}
	return email, nil
}

func outreachPrompt(p *domain.Prospect) string {
	var b strings.Builder
	b.WriteString("Write a first-touch outreach email.\n")
	fmt.Fprintf(&b, "Recipient: %s", p.Name)
	if p.Company != "" {
		fmt.Fprintf(&b, " at %s", p.Company)
	}
	b.WriteString("\nKeep it under 120 words and end with a soft call to action.")
	return b.String()
}

func followUpPrompt(p *domain.Prospect, step, maxSteps int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write follow-up email %d of %d to a prospect who has not replied.\n", step, maxSteps)
	fmt.Fprintf(&b, "Recipient: %s", p.Name)
	if p.Company != "" {
		fmt.Fprintf(&b, " at %s", p.Company)
	}
	if step == maxSteps {
		b.WriteString("\nThis is the last follow-up; politely close the loop.")
	}
	b.WriteString("\nKeep it under 80 words.")
	return b.String()
}

func classifyPrompt(reply domain.ClassifyPayload, history []*domain.Campaign) string {
	var b strings.Builder
	b.WriteString("Classify this reply to our sales outreach.\n")
	if len(history) > 0 {
		b.WriteString("\nMessages we sent previously (newest first):\n")
		for _, c := range history {
			fmt.Fprintf(&b, "- %s: %s\n", c.Subject, truncate(c.Body, 300))
		}
	}
	if reply.Subject != "" {
		fmt.Fprintf(&b, "\nReply subject: %s", reply.Subject)
	}
	fmt.Fprintf(&b, "\nReply text:\n%s\n", reply.Text)
	return b.String()
}
