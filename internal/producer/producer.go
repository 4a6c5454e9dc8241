// Package producer defines the Stage's view of the sources and sinks it
// composites but does not own: frame producers feeding a layer, and
// write-frame consumers attached to a layer's routes.
//
// Both are external collaborators in the spec's sense — a real producer
// might decode an RTSP stream, rasterize a title template, or play back a
// file, none of which is this module's concern. What the stage needs is
// the narrow capability surface below, so tests can stand in cheap fakes
// and production code can plug in whatever it likes.
package producer

import "github.com/e7canasta/stagecast/internal/frame"

// Producer yields frames on demand and reports whether a normalized point
// on its picture is "hit" for interaction purposes. A producer is shared
// (reference-counted in spirit, garbage-collected in practice) across the
// foreground/background slots of whichever layer currently holds it and
// any completion handle that captured it before a promotion.
type Producer interface {
	// Receive renders and returns the next frame for the given video
	// format. Called at most once per tick by the owning layer.
	Receive(format frame.VideoFormat) (frame.Frame, error)

	// Call forwards producer-specific parameters (an AMCP-style CALL,
	// out of scope here) and returns a string result.
	Call(params []string) (string, error)

	// Collides reports whether the normalized point (x, y) in [0,1]^2
	// hits this producer's picture, for interaction hit-testing.
	Collides(x, y float64) bool

	// Interact delivers a hit interaction event's payload to the
	// producer. Called by the interaction aggregator once per event, on
	// the first (topmost) layer whose Collides reports a hit.
	Interact(payload any)

	// Name identifies the producer for diagnostics trees.
	Name() string
}

// Consumer receives a copy of a layer's frame via a route. Send failures
// are logged by the stage and never abort the render pass.
type Consumer interface {
	Send(f frame.Frame) error
}

type emptyProducer struct{}

// Empty is the producer every layer starts with and every absent slot
// reports back through foreground()/background(): it renders nothing and
// collides with nothing.
var Empty Producer = emptyProducer{}

func (emptyProducer) Receive(frame.VideoFormat) (frame.Frame, error) { return frame.Empty(), nil }
func (emptyProducer) Call([]string) (string, error)                  { return "", nil }
func (emptyProducer) Collides(float64, float64) bool                 { return false }
func (emptyProducer) Interact(any)                                   {}
func (emptyProducer) Name() string                                   { return "empty" }

// IsEmpty reports whether p is the shared Empty producer.
func IsEmpty(p Producer) bool {
	_, ok := p.(emptyProducer)
	return ok || p == nil
}
