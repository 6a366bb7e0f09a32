package api

import (
	"testing"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

func TestSSEHub_BroadcastReachesClients(t *testing.T) {
	hub := NewSSEHub()
	go hub.Run()

	client := make(chan SSEEvent, 2)
	hub.register <- client

	hub.Broadcast(SSEEvent{Type: "task_completed", Data: EventData{
		TaskID:    "t-1",
		AgentType: domain.AgentOutreach,
		Detail:    "done",
	}})
	hub.Broadcast(SSEEvent{Type: "reply_received", Data: EventData{ProspectID: "p-1"}})

	got := receiveEvent(t, client)
	if got.Type != "task_completed" || got.Data.TaskID != "t-1" {
		t.Errorf("first event = %+v, want task_completed for t-1", got)
	}
	if got.Data.AgentType != domain.AgentOutreach {
		t.Errorf("AgentType = %q, want outreach", got.Data.AgentType)
	}
	got = receiveEvent(t, client)
	if got.Type != "reply_received" || got.Data.ProspectID != "p-1" {
		t.Errorf("second event = %+v, want reply_received for p-1", got)
	}
}

func TestSSEHub_SlowClientIsDropped(t *testing.T) {
	hub := NewSSEHub()
	go hub.Run()

	fast := make(chan SSEEvent, 2)
	slow := make(chan SSEEvent) // nobody reads it
	hub.register <- fast
	hub.register <- slow

	hub.Broadcast(SSEEvent{Type: "task_enqueued", Data: EventData{TaskID: "t-1"}})
	hub.Broadcast(SSEEvent{Type: "task_completed", Data: EventData{TaskID: "t-1"}})

	// The fast client keeps receiving.
	for _, want := range []string{"task_enqueued", "task_completed"} {
		if got := receiveEvent(t, fast); got.Type != want {
			t.Errorf("fast client got %q, want %q", got.Type, want)
		}
	}

	// By the time the fast client has both events the hub has processed
	// both broadcasts, and the first one closed the slow channel.
	if _, ok := <-slow; ok {
		t.Error("slow client channel should be closed")
	}
}

func TestSSEHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewSSEHub()
	go hub.Run()

	client := make(chan SSEEvent, 1)
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client:
		if ok {
			t.Error("unregistered channel should deliver nothing and close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func receiveEvent(t *testing.T, c chan SSEEvent) SSEEvent {
	t.Helper()
	select {
	case e := <-c:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return SSEEvent{}
	}
}
