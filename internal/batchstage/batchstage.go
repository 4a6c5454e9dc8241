// Package batchstage implements the batch-deferred facade: a wrapper
// presenting the same command surface as a Stage but recording every
// call onto a private executor whose first task blocks on a latch.
// Releasing the latch replays every recorded command against the
// underlying Stage in submission order, giving callers a way to build up
// a batch of commands (e.g. for an AMCP "cg add"-style transaction) and
// release them together. Each replayed command runs as its own task on
// the underlying stage's executor, so the replay is not atomic: a render
// pass, or a command submitted directly to the underlying stage, can run
// between two replayed commands.
//
// Grounded on stage_delayed in the original stage.cpp: its constructor
// enqueues a task that blocks on a promise/future pair before any other
// delayed command can run, and every other method is a one-line
// begin_invoke forwarding to the corresponding call on the wrapped
// stage.
package batchstage

import (
	"fmt"

	"github.com/e7canasta/stagecast/internal/executor"
	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/producer"
	"github.com/e7canasta/stagecast/internal/stage"
)

// Stage is a batch-deferred facade over an underlying *stage.Stage.
type Stage struct {
	underlying *stage.Stage
	exec       *executor.Executor
	released   chan struct{}
}

// New constructs a facade over underlying, already recording: no
// command submitted through it runs against underlying until Release is
// called.
func New(underlying *stage.Stage, index int) *Stage {
	b := &Stage{
		underlying: underlying,
		exec:       executor.New(fmt.Sprintf("batch stage %d", index)),
		released:   make(chan struct{}),
	}
	b.exec.Submit(executor.High, func() (any, error) {
		<-b.released
		return nil, nil
	})
	return b
}

// Release opens the latch, letting every command recorded so far (and
// any submitted concurrently with this call) replay against the
// underlying stage in the order they were submitted to this facade.
func (b *Stage) Release() {
	close(b.released)
}

// Executor exposes the facade's own executor, needed by the cross-facade
// swap poke.
func (b *Stage) Executor() *executor.Executor {
	return b.exec
}

// Underlying returns the wrapped Stage, for callers that need to read
// fields the facade doesn't mirror (e.g. the monitor sink).
func (b *Stage) Underlying() *stage.Stage {
	return b.underlying
}

func submit(b *Stage, fn func() error) executor.TypedHandle[struct{}] {
	return executor.SubmitVoid(b.exec, executor.High, fn)
}

// Load records a load command.
func (b *Stage) Load(index int, prod producer.Producer, preview bool, autoPlayDelta *int) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		_, err := b.underlying.Load(index, prod, preview, autoPlayDelta)
		return err
	})
}

// Play records a play command.
func (b *Stage) Play(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Play(index); return err })
}

// Preview records a preview command.
func (b *Stage) Preview(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Preview(index); return err })
}

// Pause records a pause command.
func (b *Stage) Pause(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Pause(index); return err })
}

// Resume records a resume command.
func (b *Stage) Resume(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Resume(index); return err })
}

// Stop records a stop command.
func (b *Stage) Stop(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Stop(index); return err })
}

// Clear records removing one layer.
func (b *Stage) Clear(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.Clear(index); return err })
}

// ClearAll records emptying the whole layer table.
func (b *Stage) ClearAll() executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.ClearAll(); return err })
}

// ApplyTransform records a single transform application.
func (b *Stage) ApplyTransform(index int, f stage.TransformFunc, duration uint32, easing frame.Easing, easingName string) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		_, err := b.underlying.ApplyTransform(index, f, duration, easing, easingName)
		return err
	})
}

// ApplyTransforms records a batch of transform applications as a single
// replayed command.
func (b *Stage) ApplyTransforms(batch []stage.TransformBatchEntry) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.ApplyTransforms(batch); return err })
}

// ClearTransform records resetting one layer's tween.
func (b *Stage) ClearTransform(index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.ClearTransform(index); return err })
}

// ClearTransforms records resetting every layer's tween.
func (b *Stage) ClearTransforms() executor.TypedHandle[struct{}] {
	return submit(b, func() error { _, err := b.underlying.ClearTransforms(); return err })
}

// CurrentTransform records reading a layer's current transform, replayed
// in order with whatever commands precede it.
func (b *Stage) CurrentTransform(index int) executor.TypedHandle[frame.Transform] {
	return executor.Submit(b.exec, executor.High, func() (frame.Transform, error) {
		return b.underlying.CurrentTransform(index)
	})
}

// Foreground records reading a layer's foreground producer handle.
func (b *Stage) Foreground(index int) executor.TypedHandle[producer.Producer] {
	return executor.Submit(b.exec, executor.High, func() (producer.Producer, error) {
		return b.underlying.ForegroundProducer(index)
	})
}

// Background records reading a layer's background producer handle.
func (b *Stage) Background(index int) executor.TypedHandle[producer.Producer] {
	return executor.Submit(b.exec, executor.High, func() (producer.Producer, error) {
		return b.underlying.BackgroundProducer(index)
	})
}

// Call records forwarding params to a layer's foreground producer.
func (b *Stage) Call(index int, params []string) executor.TypedHandle[string] {
	return executor.Submit(b.exec, executor.High, func() (string, error) {
		return b.underlying.Call(index, params)
	})
}

// Info records an Info snapshot read.
func (b *Stage) Info() executor.TypedHandle[stage.InfoTree] {
	return executor.Submit(b.exec, executor.High, func() (stage.InfoTree, error) {
		return b.underlying.Info()
	})
}

// InfoLayer records a per-layer Info snapshot read.
func (b *Stage) InfoLayer(index int) executor.TypedHandle[stage.InfoTree] {
	return executor.Submit(b.exec, executor.High, func() (stage.InfoTree, error) {
		return b.underlying.InfoLayer(index)
	})
}

// AddRoute records attaching a route consumer.
func (b *Stage) AddRoute(token stage.RouteToken, index int, mode stage.RouteMode, consumer producer.Consumer) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		_, err := b.underlying.AddRoute(token, index, mode, consumer).Wait()
		return err
	})
}

// RemoveRoute records detaching a route consumer.
func (b *Stage) RemoveRoute(token stage.RouteToken, index int) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		_, err := b.underlying.RemoveRoute(token, index).Wait()
		return err
	})
}

// OnInteraction records a pointer interaction event.
func (b *Stage) OnInteraction(evt stage.InteractionEvent) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		b.underlying.OnInteraction(evt)
		return nil
	})
}

// SwapLayer records an intra-stage swap.
func (b *Stage) SwapLayer(i, j int, swapTransforms bool) executor.TypedHandle[struct{}] {
	return submit(b, func() error {
		_, err := b.underlying.SwapLayer(i, j, swapTransforms)
		return err
	})
}

// SwapLayers records a whole-table swap against another facade's
// underlying stage. other's executor is poked first, and the recorded
// swap waits for that poke to run before it touches either underlying
// stage, so other's latch has been released and every command recorded
// on other before this call has been replayed by then. A swap of a
// facade with itself skips the poke.
func (b *Stage) SwapLayers(other *Stage, swapTransforms bool) executor.TypedHandle[struct{}] {
	poke := executor.Ready(nil, nil)
	if other != b {
		poke = other.exec.Submit(executor.High, func() (any, error) { return nil, nil })
	}
	return submit(b, func() error {
		poke.Wait()
		_, err := b.underlying.SwapLayers(other.underlying, swapTransforms)
		return err
	})
}

// SwapLayerAcross records a single-layer swap against another facade's
// underlying stage, with the same poke-then-schedule discipline as
// SwapLayers.
func (b *Stage) SwapLayerAcross(i int, other *Stage, j int, swapTransforms bool) executor.TypedHandle[struct{}] {
	poke := executor.Ready(nil, nil)
	if other != b {
		poke = other.exec.Submit(executor.High, func() (any, error) { return nil, nil })
	}
	return submit(b, func() error {
		poke.Wait()
		_, err := b.underlying.SwapLayerAcross(i, other.underlying, j, swapTransforms)
		return err
	})
}
