package jobs

import "testing"

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Type: EventTypeStatus, Message: "1"})
	bus.Publish(Event{Type: EventTypeProgress, Message: "2"})
	bus.Publish(Event{Type: EventTypeResult, Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestEventBusLatest finds the newest event per job and type.
func TestEventBusLatest(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{JobID: "a", Type: EventTypeProgress, Message: "old"})
	bus.Publish(Event{JobID: "b", Type: EventTypeProgress, Message: "other job"})
	bus.Publish(Event{JobID: "a", Type: EventTypeProgress, Message: "new"})

	got, ok := bus.Latest("a", EventTypeProgress)
	if !ok || got.Message != "new" {
		t.Fatalf("Latest() = %+v, %v", got, ok)
	}
	if _, ok := bus.Latest("a", EventTypeResult); ok {
		t.Fatal("expected no result event")
	}
}

// TestEventTranscriptText distinguishes absent and empty transcripts.
func TestEventTranscriptText(t *testing.T) {
	if (Event{}).TranscriptText() != "" {
		t.Fatal("absent transcript should read as empty")
	}
	text := "hello"
	if (Event{Transcript: &text}).TranscriptText() != "hello" {
		t.Fatal("unexpected transcript text")
	}
}
