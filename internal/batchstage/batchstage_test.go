package batchstage

import (
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/stage"
)

type fakeProducer struct {
	mu   sync.Mutex
	name string
	seq  uint64
}

func (p *fakeProducer) Receive(frame.VideoFormat) (frame.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return frame.Frame{Data: []byte{1}, Seq: p.seq, TraceID: p.name}, nil
}
func (p *fakeProducer) Call([]string) (string, error) { return "ok", nil }
func (p *fakeProducer) Collides(float64, float64) bool { return false }
func (p *fakeProducer) Interact(any)                   {}
func (p *fakeProducer) Name() string                   { return p.name }

func TestBatchStageHoldsCommandsUntilRelease(t *testing.T) {
	underlying := stage.New(1, nil)
	defer underlying.Executor().Shutdown()
	b := New(underlying, 1)
	defer b.Executor().Shutdown()

	loadHandle := b.Load(0, &fakeProducer{name: "clip"}, false, nil)
	playHandle := b.Play(0)

	// The underlying stage must not see either command yet: both are
	// queued behind the batch's release latch.
	fg, err := underlying.ForegroundProducer(0)
	if err != nil {
		t.Fatalf("ForegroundProducer: %v", err)
	}
	if fg.Name() != "empty" {
		t.Fatalf("underlying stage observed a queued command before Release: foreground = %q", fg.Name())
	}

	b.Release()

	if _, err := loadHandle.Wait(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := playHandle.Wait(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	fg, err = underlying.ForegroundProducer(0)
	if err != nil {
		t.Fatalf("ForegroundProducer: %v", err)
	}
	if fg.Name() != "clip" {
		t.Fatalf("foreground = %q, want clip after Release", fg.Name())
	}
}

func TestBatchStageReplaysCommandsInSubmissionOrder(t *testing.T) {
	underlying := stage.New(1, nil)
	defer underlying.Executor().Shutdown()
	b := New(underlying, 1)
	defer b.Executor().Shutdown()

	b.Load(0, &fakeProducer{name: "first"}, false, nil)
	b.Load(0, &fakeProducer{name: "second"}, false, nil)
	playHandle := b.Play(0)

	b.Release()

	if _, err := playHandle.Wait(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	fg, err := underlying.ForegroundProducer(0)
	if err != nil {
		t.Fatalf("ForegroundProducer: %v", err)
	}
	if fg.Name() != "second" {
		t.Fatalf("foreground = %q, want second (the later of two queued Loads)", fg.Name())
	}
}

func TestBatchStageCrossFacadeSwapPokesOtherExecutorFirst(t *testing.T) {
	underlyingA := stage.New(1, nil)
	underlyingB := stage.New(2, nil)
	defer underlyingA.Executor().Shutdown()
	defer underlyingB.Executor().Shutdown()

	a := New(underlyingA, 1)
	b := New(underlyingB, 2)
	defer a.Executor().Shutdown()
	defer b.Executor().Shutdown()

	a.Load(0, &fakeProducer{name: "fromA"}, false, nil)
	b.Load(0, &fakeProducer{name: "fromB"}, false, nil)
	a.Play(0)
	b.Play(0)

	swapHandle := a.SwapLayerAcross(0, b, 0, false)

	// Neither facade has released yet; the swap must wait rather than
	// deadlock or run against a stale table.
	time.Sleep(50 * time.Millisecond)

	a.Release()
	b.Release()

	if _, err := swapHandle.Wait(); err != nil {
		t.Fatalf("SwapLayerAcross: %v", err)
	}

	fgA, err := underlyingA.ForegroundProducer(0)
	if err != nil {
		t.Fatalf("ForegroundProducer(a): %v", err)
	}
	fgB, err := underlyingB.ForegroundProducer(0)
	if err != nil {
		t.Fatalf("ForegroundProducer(b): %v", err)
	}
	if fgA.Name() != "fromB" || fgB.Name() != "fromA" {
		t.Fatalf("content did not cross-swap: a=%s b=%s", fgA.Name(), fgB.Name())
	}
}
