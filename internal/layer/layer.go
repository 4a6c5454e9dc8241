// Package layer implements a single layer slot in a channel's layer
// table: a foreground/background producer pair, play state, auto-play
// countdown, and the tweened transform applied to whatever frame the
// foreground producer yields.
//
// A Layer is plain, single-threaded state. It has no lock and no
// goroutine of its own; every method is called from the owning Stage's
// executor worker, which is what makes Load/Play/Pause/Stop and the
// per-tick Receive safe to leave unsynchronized here.
package layer

import (
	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/producer"
)

// PlayState is the layer's current transport state.
type PlayState int

const (
	// Stopped means the foreground producer, if any, is not advanced and
	// Receive yields empty frames (apart from one pending preview pull);
	// the last rendered frame is kept but not output.
	Stopped PlayState = iota
	// Playing means the foreground producer is advanced every tick.
	Playing
	// Paused means the foreground producer is held at its current frame;
	// Resume returns to Playing without re-loading.
	Paused
)

// String renders the play state for diagnostics trees and logs.
func (s PlayState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Layer holds one layer's producer pair, transport state, and tween.
type Layer struct {
	foreground producer.Producer
	background producer.Producer

	state PlayState

	// autoPlayCountdown is decremented on each Receive once set by Load's
	// autoPlayDelta; on the Receive where it drops below zero the
	// background producer is promoted to foreground and playback starts.
	// A nil countdown means auto-play is not armed.
	autoPlayCountdown *int

	// previewPending marks a one-shot frame pull armed by Load(preview=true)
	// or Preview: the next Receive pulls exactly one frame from the
	// (already-promoted) foreground producer and surfaces it despite the
	// layer staying Stopped, then clears itself so every Receive after
	// that goes back to the ordinary Stopped-returns-empty rule.
	previewPending bool

	tween frame.TweenedTransform

	lastFrame frame.Frame
}

// New returns an empty layer: no producers, Stopped, identity tween.
func New() *Layer {
	return &Layer{
		foreground: producer.Empty,
		background: producer.Empty,
		state:      Stopped,
		tween:      frame.Default(),
	}
}

// Load assigns prod to the background slot. If preview is true, the
// producer is promoted to foreground immediately and arms a one-shot
// pull of its first frame on the next Receive, but playback does not
// start (a "cue and freeze" preview). If autoPlayDelta is non-nil,
// playback automatically starts once that many Receive calls have
// elapsed, counted from this Load.
func (l *Layer) Load(prod producer.Producer, preview bool, autoPlayDelta *int) {
	l.background = prod

	if preview {
		l.promoteBackground()
		l.state = Stopped
		l.previewPending = true
	}

	if autoPlayDelta != nil {
		delta := *autoPlayDelta
		l.autoPlayCountdown = &delta
	} else {
		l.autoPlayCountdown = nil
	}
}

// Play promotes the background producer (if any) to foreground and
// starts playback. Calling Play with nothing loaded simply starts
// playback of whatever is already in the foreground.
func (l *Layer) Play() {
	if !producer.IsEmpty(l.background) {
		l.promoteBackground()
	}
	l.state = Playing
	l.autoPlayCountdown = nil
	l.previewPending = false
}

// Preview promotes the background producer to foreground and arms a
// one-shot pull of its first frame on the next Receive, leaving the
// layer Stopped: used to cue a producer without starting playback.
func (l *Layer) Preview() {
	l.promoteBackground()
	l.state = Stopped
	l.previewPending = true
}

// Pause freezes the foreground producer at its current frame.
func (l *Layer) Pause() {
	if l.state == Playing {
		l.state = Paused
	}
}

// Resume returns a Paused layer to Playing. A no-op on any other state.
func (l *Layer) Resume() {
	if l.state == Paused {
		l.state = Playing
	}
}

// Stop halts playback. The foreground producer and its last rendered
// frame are retained, not cleared: Receive already yields the empty
// frame while Stopped, and a later Play with no intervening Load must
// still have a foreground to resume. Only the transport state, any
// armed auto-play countdown, and any still-pending preview pull change
// here.
func (l *Layer) Stop() {
	l.state = Stopped
	l.autoPlayCountdown = nil
	l.previewPending = false
}

// Foreground returns the layer's current foreground producer (never nil;
// producer.Empty if none).
func (l *Layer) Foreground() producer.Producer {
	return l.foreground
}

// Background returns the layer's current background producer (never
// nil; producer.Empty if none).
func (l *Layer) Background() producer.Producer {
	return l.background
}

// State returns the current play state.
func (l *Layer) State() PlayState {
	return l.state
}

// Tween returns the layer's current tweened transform, read-only.
func (l *Layer) Tween() frame.TweenedTransform {
	return l.tween
}

// SetTween installs a new source-to-destination tween, replacing
// whatever transform animation (if any) was already in flight.
func (l *Layer) SetTween(t frame.TweenedTransform) {
	l.tween = t
}

// ClearTween collapses the tween to the transform it currently resolves
// to, with zero duration, so CurrentTransform no longer moves.
func (l *Layer) ClearTween() {
	dest := l.tween.Fetch(false)
	l.tween = frame.New(dest, dest, 0, l.tween.Easing, l.tween.EasingName)
}

// CurrentTransform returns the transform the tween currently resolves to
// without advancing it, for diagnostics and interaction hit-testing.
func (l *Layer) CurrentTransform() frame.Transform {
	return l.tween.Fetch(false)
}

// promoteBackground moves the background producer into the foreground
// slot, clearing the background and the layer's last rendered frame so
// the next Receive renders fresh content from the newly promoted
// producer.
func (l *Layer) promoteBackground() {
	l.foreground = l.background
	l.background = producer.Empty
	l.lastFrame = frame.Empty()
}

// Call forwards producer-specific parameters to the foreground producer.
func (l *Layer) Call(params []string) (string, error) {
	return l.foreground.Call(params)
}

// HasBackground reports whether a background producer is staged.
func (l *Layer) HasBackground() bool {
	return !producer.IsEmpty(l.background)
}

// SwapContentWith exchanges l and other's producers, play state,
// auto-play countdown, pending preview pull, and last rendered frame.
// Tweens are left alone unless swapTransforms is true, since a tween
// belongs to the index it animates, not to whatever content currently
// occupies that index.
func (l *Layer) SwapContentWith(other *Layer, swapTransforms bool) {
	l.foreground, other.foreground = other.foreground, l.foreground
	l.background, other.background = other.background, l.background
	l.state, other.state = other.state, l.state
	l.autoPlayCountdown, other.autoPlayCountdown = other.autoPlayCountdown, l.autoPlayCountdown
	l.previewPending, other.previewPending = other.previewPending, l.previewPending
	l.lastFrame, other.lastFrame = other.lastFrame, l.lastFrame
	if swapTransforms {
		l.tween, other.tween = other.tween, l.tween
	}
}

// SwapTweenWith exchanges just l and other's tweens, leaving their
// producers, play state, and last frame untouched. Used by a whole-table
// swap to put each tween back with the index it animates after the
// surrounding content has already moved.
func (l *Layer) SwapTweenWith(other *Layer) {
	l.tween, other.tween = other.tween, l.tween
}

// ReceiveBackground pulls one frame from the background producer for a
// route in Background or NextProducer mode. It does not affect the
// foreground's play state, tween, or last-rendered frame; the background
// producer is polled independently every tick a route needs it, since it
// is not yet under playback control.
func (l *Layer) ReceiveBackground(format frame.VideoFormat) (frame.Frame, error) {
	if !l.HasBackground() {
		return frame.Empty(), nil
	}
	return l.background.Receive(format)
}

// Receive advances the layer by one tick. It returns the raw frame as
// yielded by the foreground producer (before the layer's transform is
// applied — this is what route consumers in Foreground mode observe)
// and the same frame after the tween's current transform has been
// stamped onto it, which is what the render pass composites into the
// channel's output.
//
// The tween advances exactly once per call regardless of play state: a
// Stopped or Paused layer still animates, it just has nothing of its own
// to show while it does. Only the foreground producer's advance is gated
// on Playing.
//
// Auto-play: if an auto-play countdown is armed, it is decremented here.
// The countdown must go negative, not merely reach zero, before
// promotion fires — reaching exactly zero on tick `delta` only arms the
// promotion; it takes effect on tick `delta+1`, the first tick where the
// newly-foregrounded producer is actually advanced. Decrementing and
// promoting on the same tick that then falls through to the Playing
// branch below would advance the producer twice for one promotion.
//
// Preview: a pending preview pull (armed by Load(preview=true) or
// Preview) is a one-shot exception to "Stopped returns empty" — the
// very next Receive after arming pulls and surfaces exactly one frame
// from the already-promoted foreground, then clears the flag so every
// later tick is an ordinary Stopped tick again.
func (l *Layer) Receive(format frame.VideoFormat) (raw, transformed frame.Frame, err error) {
	if l.autoPlayCountdown != nil {
		*l.autoPlayCountdown--
		if *l.autoPlayCountdown < 0 {
			l.autoPlayCountdown = nil
			l.Play()
		}
	}

	l.tween.Fetch(true)

	if l.state == Stopped && l.previewPending {
		l.previewPending = false
		f, recvErr := l.foreground.Receive(format)
		if recvErr != nil {
			return frame.Empty(), frame.Empty(), recvErr
		}
		l.lastFrame = f
		raw = l.lastFrame
		transformed = raw
		transformed.Transform = l.tween.Fetch(false)
		return raw, transformed, nil
	}

	if l.state == Stopped {
		return frame.Empty(), frame.Empty(), nil
	}

	if l.state == Playing {
		f, recvErr := l.foreground.Receive(format)
		if recvErr != nil {
			return frame.Empty(), frame.Empty(), recvErr
		}
		l.lastFrame = f
	}
	// Paused: hold lastFrame as-is; the producer is not advanced.

	raw = l.lastFrame
	transformed = raw
	transformed.Transform = l.tween.Fetch(false)
	return raw, transformed, nil
}
