package domain

import (
	"testing"
	"time"
)

func TestTaskDue(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"pending unscheduled", Task{Status: TaskPending}, true},
		{"pending past", Task{Status: TaskPending, ScheduledFor: &past}, true},
		{"pending future", Task{Status: TaskPending, ScheduledFor: &future}, false},
		{"processing", Task{Status: TaskProcessing}, false},
		{"completed", Task{Status: TaskCompleted}, false},
	}

	for _, tt := range tests {
		if got := tt.task.Due(now); got != tt.want {
			t.Errorf("%s: Due() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDecodePayload(t *testing.T) {
	raw, err := EncodePayload(ClassifyPayload{Text: "sounds great", Subject: "Re: intro"})
	if err != nil {
		t.Fatal(err)
	}

	p, err := DecodePayload(AgentClassifier, raw)
	if err != nil {
		t.Fatal(err)
	}
	cp, ok := p.(ClassifyPayload)
	if !ok {
		t.Fatalf("decoded payload type = %T, want ClassifyPayload", p)
	}
	if cp.Text != "sounds great" {
		t.Errorf("Text = %q, want %q", cp.Text, "sounds great")
	}
}

func TestDecodePayload_EmptyAndUnknown(t *testing.T) {
	if _, err := DecodePayload(AgentFollowUp, nil); err != nil {
		t.Errorf("empty payload should decode for argument-less agents: %v", err)
	}
	if _, err := DecodePayload(AgentType("mystery"), []byte("{}")); err == nil {
		t.Error("expected error for unknown agent type")
	}
}

func TestParseDayOffsets(t *testing.T) {
	got := ParseDayOffsets("3, 7,14")
	if len(got) != 3 || got[0] != 3 || got[1] != 7 || got[2] != 14 {
		t.Errorf("ParseDayOffsets = %v, want [3 7 14]", got)
	}
	if got := ParseDayOffsets("2,junk,-1,5"); len(got) != 2 {
		t.Errorf("ParseDayOffsets with junk = %v, want [2 5]", got)
	}
}

func TestSequenceNextOffset(t *testing.T) {
	seq := &FollowUpSequence{DaysBetween: "3,7,14"}
	if got := seq.NextOffset(1); got != 7 {
		t.Errorf("NextOffset(1) = %d, want 7", got)
	}
	// Falls back to the last offset past the end of the schedule.
	if got := seq.NextOffset(9); got != 14 {
		t.Errorf("NextOffset(9) = %d, want 14", got)
	}
}
