// Package monitor implements the stage's fire-and-forget event sink:
// every load, play, swap, route add/remove, and per-tick produce-time
// sample is published here and never blocks the caller on delivery.
//
// This mirrors References/orion-prototipe/internal/emitter's MQTT
// emitter, re-themed from publishing inference results to publishing
// stage lifecycle events, with the same "never let telemetry delivery
// slow down the hot path" posture: Publish is synchronous but cheap
// (encode + non-blocking handoff), and a slow or disconnected broker
// degrades to dropped events, not blocked renders.
package monitor

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one published monitor message. Path follows the spec's OSC-like
// addressing, e.g. "/layer/3/event/play" or "/profiler/time". Values are
// the primitive payload named alongside each operation in the spec (a
// bool for most layer events, floats for /profiler/time).
type Event struct {
	Path      string
	Values    []any
	Timestamp time.Time
}

// Sink is anything that can receive published stage events. Publish must
// never block the caller for longer than it takes to hand the event off;
// slow transports should buffer or drop internally.
type Sink interface {
	Publish(Event)
}

// NopSink discards every event. Useful as a Stage's default monitor
// before a real sink is attached, and in tests that don't care about
// telemetry.
type NopSink struct{}

// Publish implements Sink by discarding the event.
func (NopSink) Publish(Event) {}

// RecordingSink appends every event to an in-memory slice, for tests that
// assert on monitor output (spec §8's "monitor sees /layer/0/event/load,
// /layer/0/event/play" style assertions).
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingSink returns an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Publish implements Sink by appending the event under lock.
func (s *RecordingSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a snapshot of every event published so far, in
// publication order.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// LoggingSink logs every event at debug level via slog, matching the
// teacher's habit of pairing a network sink with structured log output
// for local debugging (see oriond's slog.Debug calls alongside MQTT
// publishes).
type LoggingSink struct {
	log *slog.Logger
}

// NewLoggingSink wraps logger (or slog.Default() if nil) as a Sink.
func NewLoggingSink(logger *slog.Logger) *LoggingSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingSink{log: logger}
}

// Publish implements Sink by logging the event path and values.
func (s *LoggingSink) Publish(e Event) {
	s.log.Debug("stage event", "path", e.Path, "values", e.Values)
}

// MultiSink fans a single Publish out to every wrapped Sink, letting a
// Stage log locally and publish over MQTT at the same time.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Publish implements Sink by publishing to every wrapped sink in order.
func (m *MultiSink) Publish(e Event) {
	for _, s := range m.sinks {
		s.Publish(e)
	}
}
