package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
	"github.com/outboundhq/pipeline-orchestrator/internal/notify"
)

func TestTransitionTo_IllegalIsRejectedNotError(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageNew)
	m := NewStageManager(st, notify.NoopNotifier{})

	out, err := m.TransitionTo(context.Background(), p, domain.StageProposalSent, "", testSettings())
	if err != nil {
		t.Fatalf("illegal transition must not error: %v", err)
	}
	if out.Status != domain.OutcomeRejected {
		t.Fatalf("Status = %q, want rejected", out.Status)
	}

	got, err := st.GetProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stage != domain.StageNew {
		t.Errorf("Stage = %q, want unchanged new", got.Stage)
	}
	activities, err := st.ListActivities(p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(activities) != 0 {
		t.Errorf("rejected transition must not log activity, got %d", len(activities))
	}
}

func TestTransitionTo_LogsActivity(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageNew)
	m := NewStageManager(st, notify.NoopNotifier{})

	out, err := m.TransitionTo(context.Background(), p, domain.StageContacted, "initial outreach sent", testSettings())
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if out.Status != domain.OutcomeDone {
		t.Fatalf("Status = %q, want done", out.Status)
	}

	activities, err := st.ListActivities(p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(activities))
	}
	if activities[0].Type != "stage_change" {
		t.Errorf("Type = %q, want stage_change", activities[0].Type)
	}
}

func TestEntryEffects_ContactedSeedsSequenceOnce(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageNew)
	m := NewStageManager(st, notify.NoopNotifier{})

	if _, err := m.TransitionTo(context.Background(), p, domain.StageContacted, "", testSettings()); err != nil {
		t.Fatal(err)
	}
	seq, err := st.GetSequenceByProspect(p.ID)
	if err != nil {
		t.Fatalf("sequence should exist: %v", err)
	}
	if seq.MaxSteps != 3 || seq.DaysBetween != "3,7,14" {
		t.Errorf("sequence = max %d days %q, want 3 / 3,7,14", seq.MaxSteps, seq.DaysBetween)
	}

	// Re-entering contacted (revived prospect) must not create a second
	// sequence or reset the existing one.
	if err := st.AdvanceSequence(seq.ID, 2, seq.CreatedAt, seq.CreatedAt); err != nil {
		t.Fatal(err)
	}
	p.Stage = domain.StageNew
	if err := st.UpdateProspectStage(p.ID, domain.StageNew); err != nil {
		t.Fatal(err)
	}
	if _, err := m.TransitionTo(context.Background(), p, domain.StageContacted, "", testSettings()); err != nil {
		t.Fatal(err)
	}
	again, err := st.GetSequenceByProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != seq.ID || again.Step != 2 {
		t.Errorf("sequence should be untouched, got id=%s step=%d", again.ID, again.Step)
	}
}

func TestEntryEffects_RespondedPausesSequence(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageContacted)
	newTestSequence(t, st, p.ID, 1, 3)
	m := NewStageManager(st, notify.NoopNotifier{})

	if _, err := m.TransitionTo(context.Background(), p, domain.StageResponded, "reply received", testSettings()); err != nil {
		t.Fatal(err)
	}
	seq, err := st.GetSequenceByProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !seq.IsPaused {
		t.Error("entering responded must pause the sequence")
	}
}

func TestEntryEffects_MeetingScheduledHandsOff(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageResponded)
	alerts := &recordingNotifier{}
	m := NewStageManager(st, alerts)

	out, err := m.TransitionTo(context.Background(), p, domain.StageMeetingScheduled, "reply classified MEETING_REQUEST", testSettings())
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if out.Status != domain.OutcomeDone {
		t.Fatalf("Status = %q, want done", out.Status)
	}

	got, err := st.GetProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AutomationEnabled {
		t.Error("meeting_scheduled must disable automation")
	}

	notifications, err := st.ListNotifications(true, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 || notifications[0].Type != domain.NotifyMeeting {
		t.Errorf("want one meeting_request notification, got %+v", notifications)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Level != notify.AlertWarning {
		t.Errorf("want one warning alert, got %+v", alerts.alerts)
	}
}

func TestEntryEffects_Won(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageProposalSent)
	alerts := &recordingNotifier{}
	m := NewStageManager(st, alerts)

	if _, err := m.TransitionTo(context.Background(), p, domain.StageWon, "signed", testSettings()); err != nil {
		t.Fatal(err)
	}

	notifications, err := st.ListNotifications(true, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 || notifications[0].Type != domain.NotifyWin {
		t.Errorf("want one deal_won notification, got %+v", notifications)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Level != notify.AlertSuccess {
		t.Errorf("want one success alert, got %+v", alerts.alerts)
	}

	// Won is terminal.
	out, err := m.TransitionTo(context.Background(), p, domain.StageLost, "", testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.OutcomeRejected {
		t.Errorf("leaving won: Status = %q, want rejected", out.Status)
	}
}

func TestEntryEffects_Lost(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageContacted)
	newTestSequence(t, st, p.ID, 1, 3)
	m := NewStageManager(st, notify.NoopNotifier{})

	if _, err := m.TransitionTo(context.Background(), p, domain.StageLost, "no response", testSettings()); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AutomationEnabled {
		t.Error("lost must disable automation")
	}
	seq, err := st.GetSequenceByProspect(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !seq.IsPaused {
		t.Error("lost must pause the sequence")
	}

	// Revival back to new is the only way out of lost.
	out, err := m.TransitionTo(context.Background(), got, domain.StageNew, "re-engagement", testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.OutcomeDone {
		t.Errorf("lost → new: Status = %q, want done", out.Status)
	}
}

func TestStageManagerExecute(t *testing.T) {
	st := newTestStore(t)
	p := newTestProspect(t, st, domain.StageResponded)
	m := NewStageManager(st, notify.NoopNotifier{})

	out, err := m.Execute(context.Background(), p.ID,
		domain.StagePayload{Target: domain.StageMeetingScheduled, Reason: "reply classified MEETING_REQUEST"},
		testSettings())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Status != domain.OutcomeDone {
		t.Errorf("Status = %q, want done", out.Status)
	}

	t.Run("wrong payload type", func(t *testing.T) {
		_, err := m.Execute(context.Background(), p.ID, domain.OutreachPayload{}, testSettings())
		var terminal *TerminalError
		if !errors.As(err, &terminal) {
			t.Errorf("err = %v, want TerminalError", err)
		}
	})

	t.Run("missing prospect", func(t *testing.T) {
		_, err := m.Execute(context.Background(), "gone",
			domain.StagePayload{Target: domain.StageLost}, testSettings())
		var terminal *TerminalError
		if !errors.As(err, &terminal) {
			t.Errorf("err = %v, want TerminalError", err)
		}
	})
}
