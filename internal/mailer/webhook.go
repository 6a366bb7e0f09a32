package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender posts messages to an email relay endpoint.
type WebhookSender struct {
	url    string
	from   string
	client *http.Client
}

// NewWebhookSender creates a sender for the given relay URL. An empty URL
// yields a sender that reports itself not ready.
func NewWebhookSender(url, from string) *WebhookSender {
	return &WebhookSender{
		url:  url,
		from: from,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ready reports whether a relay endpoint is configured.
func (w *WebhookSender) Ready() bool {
	return w.url != ""
}

type relayPayload struct {
	From    string   `json:"from,omitempty"`
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags,omitempty"`
}

type relayResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Send posts the message to the relay.
func (w *WebhookSender) Send(ctx context.Context, msg Message) (Result, error) {
	if !w.Ready() {
		return Result{}, fmt.Errorf("mail relay not configured")
	}

	payload, err := json.Marshal(relayPayload{
		From:    w.from,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		Tags:    msg.Tags,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("mail relay returned %d", resp.StatusCode)
	}

	var rr relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		// A relay that returns no body still delivered.
		return Result{}, nil
	}
	if rr.Error != "" {
		return Result{}, fmt.Errorf("mail relay: %s", rr.Error)
	}
	return Result{ID: rr.ID}, nil
}
