package stage

import "sort"

// InteractionEvent is a pointer event offered to a stage for hit-testing,
// expressed in the mixer's normalized [0,1]^2 output space.
type InteractionEvent struct {
	X, Y float64
	// Payload carries whatever the caller wants a hit layer to receive;
	// the stage does not interpret it.
	Payload any
}

// aggregator buffers interaction events between render passes and
// resolves each to a layer on flush, run entirely on the owning stage's
// executor so it never races the layer table it hit-tests against.
type aggregator struct {
	stage   *Stage
	pending []InteractionEvent
}

func newAggregator(s *Stage) *aggregator {
	return &aggregator{stage: s}
}

// offer buffers evt for the next flush. Must be called on the executor.
func (a *aggregator) offer(evt InteractionEvent) {
	a.pending = append(a.pending, evt)
}

// flush resolves every buffered event against the current layer table in
// descending index order (topmost layer first) and clears the buffer.
// Events with no hit are dropped. Must be called on the executor, at the
// top of each render pass, before any layer's tween is advanced for this
// tick.
func (a *aggregator) flush() {
	if len(a.pending) == 0 {
		return
	}
	events := a.pending
	a.pending = nil

	indices := make([]int, 0, len(a.stage.layers))
	for i := range a.stage.layers {
		indices = append(indices, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	for _, evt := range events {
		a.dispatch(evt, indices)
	}
}

func (a *aggregator) dispatch(evt InteractionEvent, descendingIndices []int) {
	for _, i := range descendingIndices {
		l := a.stage.layers[i]
		t := l.CurrentTransform()
		lx, ly := t.InverseProject(evt.X, evt.Y)
		if lx < 0 || lx > 1 || ly < 0 || ly > 1 {
			continue
		}
		if l.Foreground().Collides(lx, ly) {
			l.Foreground().Interact(evt.Payload)
			return
		}
	}
}
