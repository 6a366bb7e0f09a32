package domain

import "fmt"

// Stage is a prospect's position in the sales pipeline.
type Stage string

const (
	StageNew              Stage = "new"
	StageContacted        Stage = "contacted"
	StageResponded        Stage = "responded"
	StageMeetingScheduled Stage = "meeting_scheduled"
	StageProposalSent     Stage = "proposal_sent"
	StageWon              Stage = "won"
	StageLost             Stage = "lost"
)

// validTransitions maps each stage to the stages it may move to.
// Won is terminal; lost can only be revived back to new by hand.
var validTransitions = map[Stage][]Stage{
	StageNew:              {StageContacted, StageLost},
	StageContacted:        {StageResponded, StageLost},
	StageResponded:        {StageMeetingScheduled, StageLost},
	StageMeetingScheduled: {StageProposalSent, StageWon, StageLost},
	StageProposalSent:     {StageWon, StageLost},
	StageWon:              {},
	StageLost:             {StageNew},
}

// stageOrder ranks stages for forward-progress checks. Terminal stages
// sit above everything so classification never moves a prospect backward.
var stageOrder = map[Stage]int{
	StageNew:              0,
	StageContacted:        1,
	StageResponded:        2,
	StageMeetingScheduled: 3,
	StageProposalSent:     4,
	StageWon:              5,
	StageLost:             5,
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s Stage) CanTransitionTo(target Stage) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error when the move from s to
// target is not in the transition table. The error is a domain result, not
// a fault; callers surface it as a rejected outcome.
func ValidateTransition(from, to Stage) error {
	if !to.IsValid() {
		return fmt.Errorf("unknown stage %q", to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("cannot move from %q to %q; allowed: %v", from, to, validTransitions[from])
	}
	return nil
}

// mainline is the happy-path progression. Won and lost sit outside it;
// they are reached by a single direct transition.
var mainline = []Stage{StageNew, StageContacted, StageResponded, StageMeetingScheduled, StageProposalSent}

// ForwardPath returns the mainline stages to pass through, in order, to
// move from one stage to another, ending at to. It returns nil when
// either stage is off the mainline or the move is not strictly forward.
// A classification can imply a stage more than one step ahead; walking
// the path keeps every intermediate entry effect firing.
func ForwardPath(from, to Stage) []Stage {
	fi, ti := -1, -1
	for i, s := range mainline {
		if s == from {
			fi = i
		}
		if s == to {
			ti = i
		}
	}
	if fi < 0 || ti < 0 || ti <= fi {
		return nil
	}
	return mainline[fi+1 : ti+1]
}

// IsForwardOf reports whether s ranks strictly ahead of other in the
// pipeline. Used to reject classifications that would walk a prospect
// backward.
func (s Stage) IsForwardOf(other Stage) bool {
	return stageOrder[s] > stageOrder[other]
}

// Classification is the closed set of reply interpretations.
type Classification string

const (
	ClassInterested     Classification = "INTERESTED"
	ClassNotInterested  Classification = "NOT_INTERESTED"
	ClassQuestion       Classification = "QUESTION"
	ClassMeetingRequest Classification = "MEETING_REQUEST"
	ClassOutOfOffice    Classification = "OUT_OF_OFFICE"
	ClassUnclear        Classification = "UNCLEAR"
)

// ParseClassification normalizes a raw label; anything outside the closed
// set collapses to UNCLEAR rather than failing.
func ParseClassification(raw string) Classification {
	switch Classification(raw) {
	case ClassInterested, ClassNotInterested, ClassQuestion,
		ClassMeetingRequest, ClassOutOfOffice, ClassUnclear:
		return Classification(raw)
	default:
		return ClassUnclear
	}
}

// TargetStage returns the stage a classification implies, or "" when the
// classification carries no stage change (out-of-office, unclear).
func (c Classification) TargetStage() Stage {
	switch c {
	case ClassInterested, ClassQuestion:
		return StageResponded
	case ClassMeetingRequest:
		return StageMeetingScheduled
	case ClassNotInterested:
		return StageLost
	default:
		return ""
	}
}
