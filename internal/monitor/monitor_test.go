package monitor

import "testing"

func TestRecordingSinkCapturesPublicationOrder(t *testing.T) {
	s := NewRecordingSink()
	s.Publish(Event{Path: "/layer/0/event/load", Values: []any{true}})
	s.Publish(Event{Path: "/layer/0/event/play", Values: []any{true}})

	events := s.Events()
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Path != "/layer/0/event/load" || events[1].Path != "/layer/0/event/play" {
		t.Fatalf("events out of order: %+v", events)
	}
}

func TestRecordingSinkEventsIsASnapshot(t *testing.T) {
	s := NewRecordingSink()
	s.Publish(Event{Path: "/profiler/time", Values: []any{0.1}})

	snapshot := s.Events()
	s.Publish(Event{Path: "/profiler/time", Values: []any{0.2}})

	if len(snapshot) != 1 {
		t.Fatalf("earlier snapshot mutated: len = %d, want 1", len(snapshot))
	}
	if len(s.Events()) != 2 {
		t.Fatalf("later snapshot should see both events, got %d", len(s.Events()))
	}
}

type countingSink struct{ n int }

func (c *countingSink) Publish(Event) { c.n++ }

func TestMultiSinkFansOutToEveryWrappedSink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMultiSink(a, b)

	m.Publish(Event{Path: "/layer/0/event/stop"})

	if a.n != 1 || b.n != 1 {
		t.Fatalf("expected both sinks to receive the event, got a=%d b=%d", a.n, b.n)
	}
}

func TestNopSinkDiscardsWithoutPanicking(t *testing.T) {
	var s NopSink
	s.Publish(Event{Path: "/layer/0/event/load"})
}
