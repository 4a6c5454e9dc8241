package layer

import (
	"errors"
	"testing"

	"github.com/e7canasta/stagecast/internal/frame"
)

type fakeProducer struct {
	name    string
	seq     uint64
	failing bool
}

func (p *fakeProducer) Receive(frame.VideoFormat) (frame.Frame, error) {
	if p.failing {
		return frame.Empty(), errors.New("producer exploded")
	}
	p.seq++
	return frame.Frame{Data: []byte{1}, Seq: p.seq, TraceID: p.name}, nil
}

func (p *fakeProducer) Call(params []string) (string, error) { return "ok", nil }
func (p *fakeProducer) Collides(x, y float64) bool            { return x >= 0 && x <= 1 && y >= 0 && y <= 1 }
func (p *fakeProducer) Interact(any)                          {}
func (p *fakeProducer) Name() string                          { return p.name }

var format = frame.VideoFormat{Width: 1920, Height: 1080, FrameRate: 50}

func TestNewLayerIsEmptyAndStopped(t *testing.T) {
	l := New()
	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", l.State())
	}
	raw, transformed, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !raw.IsEmpty() || !transformed.IsEmpty() {
		t.Fatalf("expected empty frames from an unloaded layer")
	}
}

func TestPreviewLoadPullsExactlyOneFrame(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, true, nil)

	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped (preview must not start playback)", l.State())
	}
	if l.Foreground().Name() != "clip" {
		t.Fatalf("preview must promote the producer to foreground immediately")
	}

	raw, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.IsEmpty() || raw.Seq != 1 {
		t.Fatalf("expected the previewed producer's first frame on the first tick, got %+v", raw)
	}
	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped (a preview pull does not start playback)", l.State())
	}

	raw2, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !raw2.IsEmpty() {
		t.Fatalf("expected empty output on the tick after the one-shot preview pull, got %+v", raw2)
	}
}

func TestPreviewMethodPullsExactlyOneFrame(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, false, nil) // stage only; no preview yet

	l.Preview()
	if l.Foreground().Name() != "clip" {
		t.Fatalf("Preview must promote the staged producer to foreground")
	}

	raw, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.IsEmpty() || raw.Seq != 1 {
		t.Fatalf("expected one pulled frame from Preview, got %+v", raw)
	}

	raw2, _, _ := l.Receive(format)
	if !raw2.IsEmpty() {
		t.Fatalf("expected empty output once the one-shot preview pull is consumed, got %+v", raw2)
	}
}

func TestLoadThenPlayScenario(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}

	l.Load(p, false, nil)
	if l.Background().Name() != "clip" {
		t.Fatalf("Load must place producer in background slot")
	}
	if l.State() != Stopped {
		t.Fatalf("Load alone must not start playback")
	}

	// Stopped: Receive must not advance the (still backgrounded) producer.
	raw, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !raw.IsEmpty() {
		t.Fatalf("expected no output before Play promotes the producer")
	}

	l.Play()
	if l.State() != Playing {
		t.Fatalf("state = %v, want Playing", l.State())
	}
	if l.Foreground().Name() != "clip" {
		t.Fatalf("Play must promote the background producer to foreground")
	}

	raw, transformed, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.IsEmpty() || raw.Seq != 1 {
		t.Fatalf("expected first produced frame, got %+v", raw)
	}
	if transformed.Transform != frame.Identity() {
		t.Fatalf("identity tween must leave the transform untouched")
	}

	raw2, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw2.Seq != 2 {
		t.Fatalf("Playing layer must advance the producer every tick, got seq %d", raw2.Seq)
	}
}

func TestPauseHoldsLastFrame(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, false, nil)
	l.Play()

	l.Receive(format)
	l.Pause()
	if l.State() != Paused {
		t.Fatalf("state = %v, want Paused", l.State())
	}

	raw, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Seq != 1 {
		t.Fatalf("a paused layer must not advance its producer, got seq %d", raw.Seq)
	}

	raw2, _, _ := l.Receive(format)
	if raw2.Seq != 1 {
		t.Fatalf("a paused layer must keep holding the same frame, got seq %d", raw2.Seq)
	}

	l.Resume()
	if l.State() != Playing {
		t.Fatalf("Resume must return to Playing")
	}
}

func TestStopRetainsForegroundButYieldsEmptyOutput(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, true, nil)
	if l.Foreground().Name() != "clip" {
		t.Fatalf("preview load must promote to foreground")
	}

	l.Stop()
	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", l.State())
	}
	if l.Foreground().Name() != "clip" {
		t.Fatalf("Stop must retain the foreground producer, got %q", l.Foreground().Name())
	}
	raw, _, _ := l.Receive(format)
	if !raw.IsEmpty() {
		t.Fatalf("expected no output after Stop")
	}

	// Play with no intervening Load must resume the retained foreground,
	// not come up empty for lack of anything to promote from background.
	l.Play()
	if l.Foreground().Name() != "clip" {
		t.Fatalf("Play after Stop must still have the retained producer in foreground, got %q", l.Foreground().Name())
	}
	raw, _, err := l.Receive(format)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.IsEmpty() {
		t.Fatalf("expected resumed output after Play following Stop")
	}
}

func TestAutoPlayScenario(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "bump"}
	delta := 2
	l.Load(p, false, &delta)

	if l.State() != Stopped {
		t.Fatalf("armed auto-play must not start playback immediately")
	}

	l.Receive(format) // countdown: 2 -> 1
	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped before countdown elapses", l.State())
	}

	l.Receive(format) // countdown: 1 -> 0, still armed, not yet negative
	if l.State() != Stopped {
		t.Fatalf("state = %v, want Stopped on the tick the countdown merely reaches zero", l.State())
	}

	raw, _, err := l.Receive(format) // countdown: 0 -> -1, auto-play fires and advances
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Playing {
		t.Fatalf("state = %v, want Playing at tick #3", l.State())
	}
	if l.Foreground().Name() != "bump" {
		t.Fatalf("auto-play must promote the loaded producer to foreground")
	}
	if raw.IsEmpty() || raw.Seq != 1 {
		t.Fatalf("expected the promoted producer's first frame on the promoting tick, got %+v", raw)
	}
}

func TestTweenAdvancesOnStoppedLayer(t *testing.T) {
	l := New() // never Loaded or Played: stays Stopped throughout.

	dst := frame.Identity()
	dst.PositionX = 1.0
	l.SetTween(frame.New(frame.Identity(), dst, 4, frame.Linear, "linear"))

	want := []float64{0.25, 0.50, 0.75, 1.0}
	for i, w := range want {
		raw, transformed, err := l.Receive(format)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", i, err)
		}
		if !raw.IsEmpty() || !transformed.IsEmpty() {
			t.Fatalf("tick %d: a Stopped layer must still emit empty frames", i)
		}
		if l.State() != Stopped {
			t.Fatalf("tick %d: state = %v, want Stopped (no load or play occurred)", i, l.State())
		}
		got := l.CurrentTransform().PositionX
		if got != w {
			t.Fatalf("tick %d: PositionX = %v, want %v", i, got, w)
		}
	}
}

func TestCallForwardsToForegroundProducer(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, true, nil)

	result, err := l.Call([]string{"SEEK", "100"})
	if err != nil || result != "ok" {
		t.Fatalf("result=%q err=%v, want ok/nil", result, err)
	}
}

func TestReceiveErrorPropagatesFromProducer(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "broken", failing: true}
	l.Load(p, false, nil)
	l.Play()

	_, _, err := l.Receive(format)
	if err == nil {
		t.Fatal("expected error from a failing producer")
	}
}

func TestClearTweenFreezesAtCurrentTransform(t *testing.T) {
	l := New()
	p := &fakeProducer{name: "clip"}
	l.Load(p, false, nil)
	l.Play()

	dst := frame.Identity()
	dst.Opacity = 0.5
	l.SetTween(frame.New(frame.Identity(), dst, 4, frame.Linear, "linear"))

	l.Receive(format) // FramesElapsed: 0 -> 1
	l.Receive(format) // FramesElapsed: 1 -> 2, halfway between 1.0 and 0.5

	want := 0.75 // Lerp(1.0, 0.5, 2/4)
	l.ClearTween()
	got := l.CurrentTransform()
	if got.Opacity != want {
		t.Fatalf("opacity = %v, want %v after ClearTween freezes mid-tween", got.Opacity, want)
	}
	if !l.Tween().AtDestination() {
		t.Fatalf("ClearTween must leave the tween AtDestination")
	}
}
