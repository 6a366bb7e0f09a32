package domain

import (
	"strconv"
	"strings"
	"time"
)

// Prospect is a business contact moving through the pipeline. The core
// never deletes prospects; intake and deletion belong to collaborators.
type Prospect struct {
	ID                string
	Name              string
	Email             string // optional
	Company           string
	Stage             Stage
	AutomationEnabled bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FollowUpSequence tracks a prospect's progress through the bounded
// reminder cadence. At most one sequence exists per prospect.
type FollowUpSequence struct {
	ID          string
	ProspectID  string
	Step        int // 0..MaxSteps
	MaxSteps    int
	DaysBetween string // comma-separated day offsets, e.g. "3,7,14"
	IsPaused    bool
	LastSentAt  *time.Time
	NextSendAt  *time.Time
	CreatedAt   time.Time
}

// Offsets parses DaysBetween into day counts, skipping malformed entries.
func (s *FollowUpSequence) Offsets() []int {
	return ParseDayOffsets(s.DaysBetween)
}

// NextOffset returns the day offset to wait after sending step number
// step, falling back to the last offset when the schedule is shorter.
func (s *FollowUpSequence) NextOffset(step int) int {
	offsets := s.Offsets()
	if len(offsets) == 0 {
		return 0
	}
	if step >= len(offsets) {
		return offsets[len(offsets)-1]
	}
	return offsets[step]
}

// FormatDayOffsets renders offsets back to the comma-separated form
// sequences are seeded with.
func FormatDayOffsets(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, n := range offsets {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseDayOffsets parses a comma-separated offset list like "3,7,14".
func ParseDayOffsets(spec string) []int {
	var out []int
	for _, part := range strings.Split(spec, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// CampaignStatus is the delivery state of one generated message.
type CampaignStatus string

const (
	CampaignPending CampaignStatus = "pending"
	CampaignSent    CampaignStatus = "sent"
	// CampaignDraft is the deliberately inert state for messages that could
	// not be delivered for correctable reasons (no address, mailer not
	// configured). Not a failure.
	CampaignDraft  CampaignStatus = "draft"
	CampaignFailed CampaignStatus = "failed"
)

// CampaignKind distinguishes the initial touch from cadence sends.
type CampaignKind string

const (
	CampaignOutreach CampaignKind = "outreach"
	CampaignFollowUp CampaignKind = "followup"
)

// Campaign is one generated outbound message and its delivery state.
type Campaign struct {
	ID         string
	ProspectID string
	Kind       CampaignKind
	Subject    string
	Body       string
	Status     CampaignStatus
	SentAt     *time.Time
	CreatedAt  time.Time
}

// NotificationType tags user-facing alerts.
type NotificationType string

const (
	NotifyMeeting  NotificationType = "meeting_request"
	NotifyWin      NotificationType = "deal_won"
	NotifyReply    NotificationType = "reply_received"
	NotifyReview   NotificationType = "needs_review"
	NotifyQuestion NotificationType = "question"
)

// Notification is a user-facing alert with a read lifecycle and an
// optional deep link into the UI.
type Notification struct {
	ID         string
	Type       NotificationType
	Title      string
	Message    string
	ProspectID string // optional
	IsRead     bool
	ActionRef  string // optional deep link
	CreatedAt  time.Time
}

// Activity is one append-only log entry. The core only ever writes these;
// the read side belongs to the UI collaborator.
type Activity struct {
	ID          int64
	ProspectID  string
	Type        string
	Description string
	CreatedAt   time.Time
}

// Settings is the runtime configuration snapshot handed to agents at
// dispatch time. Agents never read the settings store directly.
type Settings struct {
	FollowUpDays []int
	MaxFollowUps int
	AutoOutreach bool
	AutoClassify bool
	LLMProvider  string
}

// DefaultFollowUpDays is the cadence used when no setting is stored.
const DefaultFollowUpDays = "3,7,14"
