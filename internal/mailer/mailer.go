// Package mailer defines the email delivery collaborator contract. An
// unready sender is a terminal, correctable condition: agents downgrade
// the campaign to draft instead of queueing a retry.
package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	Tags    []string
}

// Result reports a delivery attempt.
type Result struct {
	// ID is the delivery service's message identifier, when provided.
	ID string
}

// Sender delivers outbound email.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	// Ready reports whether the sender is configured for delivery.
	Ready() bool
}
