package domain

import (
	"encoding/json"
	"fmt"
)

// TaskPayload is the typed per-agent task payload. Payloads are stored as
// JSON and decoded exactly once, at dispatch time, against the task's
// agent type.
type TaskPayload interface {
	payload()
}

// OutreachPayload carries no parameters; the agent reads everything it
// needs from the prospect record.
type OutreachPayload struct{}

// FollowUpPayload carries no parameters; cadence state lives on the
// follow-up sequence.
type FollowUpPayload struct{}

// ClassifyPayload is an inbound reply to interpret.
type ClassifyPayload struct {
	Text    string `json:"text"`
	Subject string `json:"subject,omitempty"`
}

// StagePayload requests a stage transition.
type StagePayload struct {
	Target Stage  `json:"target"`
	Reason string `json:"reason,omitempty"`
}

func (OutreachPayload) payload() {}
func (FollowUpPayload) payload() {}
func (ClassifyPayload) payload() {}
func (StagePayload) payload()    {}

// EncodePayload serializes a payload for storage. A nil payload encodes as
// an empty object so every agent type can be enqueued without arguments.
func EncodePayload(p TaskPayload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// DecodePayload parses raw payload bytes for the given agent type.
func DecodePayload(agentType AgentType, raw []byte) (TaskPayload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch agentType {
	case AgentOutreach:
		var p OutreachPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding outreach payload: %w", err)
		}
		return p, nil
	case AgentFollowUp:
		var p FollowUpPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding followup payload: %w", err)
		}
		return p, nil
	case AgentClassifier:
		var p ClassifyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding classifier payload: %w", err)
		}
		return p, nil
	case AgentStageManager:
		var p StagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding stage payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown agent type %q", agentType)
	}
}
