// Package notify mirrors high-priority pipeline events (meeting booked,
// deal won) to operator channels. The durable notification records live in
// the store; this is the outbound fan-out on top of them.
package notify

// AlertLevel represents the urgency of an alert
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertSuccess
	AlertWarning
	AlertError
)

// Alert represents an operator-facing alert to be sent
type Alert struct {
	Title      string
	Message    string
	Level      AlertLevel
	ProspectID string // Optional prospect reference
	ActionRef  string // Optional deep link
}

// Notifier is the interface for sending alerts
type Notifier interface {
	Send(a Alert) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the alert to all notifiers
func (m *MultiNotifier) Send(a Alert) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(a); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(a Alert) error { return nil }
