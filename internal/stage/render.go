package stage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/stagecast/internal/executor"
	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/layer"
)

// renderBatchSize mirrors modules/framesupplier/internal/distribution.go's
// publishBatchSize: fan out sequentially at or below this many active
// indices, and in fixed-size goroutine batches above it, so a channel
// with a handful of layers never pays goroutine-spawn overhead for work
// that finishes faster than the spawn itself.
const renderBatchSize = 8

// Render runs one tick of the render pass: it flushes the interaction
// aggregator, renders every active index (sequentially for up to
// renderBatchSize indices, in parallel goroutine batches above that), fans frames out to
// attached route consumers, and returns the index-to-frame map the mixer
// composites. It always runs as a Higher-priority executor task, so it
// preempts any pending High-priority command and sees a consistent
// snapshot of the layer and route tables.
func (s *Stage) Render(format frame.VideoFormat) (map[int]frame.Frame, error) {
	v, err := s.exec.Invoke(executor.Higher, func() (any, error) {
		return s.renderLocked(format)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int]frame.Frame), nil
}

func (s *Stage) renderLocked(format frame.VideoFormat) (result map[int]frame.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stage render pass panicked, clearing layer table", "channel", s.channelIndex, "panic", r)
			s.layers = make(map[int]*layer.Layer)
			result, err = make(map[int]frame.Frame), nil
		}
	}()

	start := timeNow()

	active := s.activeIndices()
	output := make(map[int]frame.Frame, len(active))
	for _, i := range active {
		output[i] = frame.Empty()
		if _, ok := s.routes[i]; !ok {
			s.routes[i] = make(map[RouteToken]routeEntry)
		}
	}

	s.aggregator.flush()

	var mu sync.Mutex
	renderIndices(active, func(i int) {
		s.renderLayer(i, format, output, &mu)
	})

	elapsed := timeNow().Sub(start)
	s.publishProduceTime(elapsed, format)

	return output, nil
}

// renderLayer renders one layer index and fans its frame out to any
// attached route consumers, per the mode table in §4.5: Foreground gets
// the raw pre-tween frame, Background gets a frame pulled from the
// staged background producer, NextProducer gets the background frame if
// one is staged, else falls back to foreground.
func (s *Stage) renderLayer(index int, format frame.VideoFormat, output map[int]frame.Frame, mu *sync.Mutex) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("layer render failed, emitting empty frame", "channel", s.channelIndex, "layer", index, "panic", r)
			mu.Lock()
			output[index] = frame.Empty()
			mu.Unlock()
		}
	}()

	var raw, transformed frame.Frame
	if l, ok := s.layers[index]; ok {
		r, t, err := l.Receive(format)
		if err != nil {
			slog.Warn("producer receive failed, emitting empty frame", "channel", s.channelIndex, "layer", index, "error", err)
			r, t = frame.Empty(), frame.Empty()
		}
		raw, transformed = r, t
	} else {
		raw, transformed = frame.Empty(), frame.Empty()
	}

	if entries := s.routes[index]; len(entries) > 0 {
		s.fanOutRoutes(index, entries, format, raw)
	}

	mu.Lock()
	output[index] = transformed
	mu.Unlock()
}

func (s *Stage) fanOutRoutes(index int, entries map[RouteToken]routeEntry, format frame.VideoFormat, raw frame.Frame) {
	var bgFrame frame.Frame
	var hasBg bool
	anyBg := false
	for _, e := range entries {
		if e.mode == Background || e.mode == NextProducer {
			anyBg = true
			break
		}
	}
	if anyBg {
		if l, ok := s.layers[index]; ok {
			hasBg = l.HasBackground()
			f, err := l.ReceiveBackground(format)
			if err != nil {
				slog.Warn("background producer receive failed", "channel", s.channelIndex, "layer", index, "error", err)
				f = frame.Empty()
			}
			bgFrame = f
		}
	}

	var wg sync.WaitGroup
	for token, e := range entries {
		token, e := token, e
		wg.Add(1)
		go func() {
			defer wg.Done()
			frameToSend := raw
			if e.mode == Background || (e.mode == NextProducer && hasBg) {
				frameToSend = bgFrame
			}
			if err := e.consumer.Send(frameToSend); err != nil {
				slog.Warn("route send failed", "channel", s.channelIndex, "layer", index, "token", fmt.Sprint(token), "error", err)
			}
		}()
	}
	wg.Wait()
}

func (s *Stage) publishProduceTime(elapsed time.Duration, format frame.VideoFormat) {
	period := format.Period()
	produceTime := float64(elapsed) / float64(period) * 0.5
	s.publish("/profiler/time", produceTime)
	if period > 0 && elapsed > period {
		slog.Warn("stage missed frame period", "channel", s.channelIndex, "elapsed", elapsed, "period", period)
	}
}

// renderIndices drives fn over indices, sequentially for small sets and
// in goroutine batches of renderBatchSize otherwise.
func renderIndices(indices []int, fn func(int)) {
	if len(indices) <= renderBatchSize {
		for _, i := range indices {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < len(indices); start += renderBatchSize {
		end := start + renderBatchSize
		if end > len(indices) {
			end = len(indices)
		}
		batch := indices[start:end]
		wg.Add(1)
		go func(batch []int) {
			defer wg.Done()
			for _, i := range batch {
				fn(i)
			}
		}(batch)
	}
	wg.Wait()
}
