// Package stage implements the per-channel compositing coordinator: a
// sparse layer table, a route table fanning layer output to side-channel
// consumers, the per-tick render pass, a pointer-interaction aggregator,
// and a cross-stage swap coordinator — all serialized through one
// internal/executor instance per Stage.
//
// Most exported methods run a closure on the Stage's executor through
// Invoke and return its result once it has run: they block the caller
// and hand back no completion handle. AddRoute and RemoveRoute submit
// their closure and return a completion handle, and OnInteraction submits
// its closure and returns nothing. The unexported methods these closures
// call (renderLocked, applyTransformLocked, and friends) assume they
// already run on the executor worker and touch the layer/route maps
// without a lock, per the single-writer discipline the executor enforces.
package stage

import (
	"fmt"
	"sort"
	"time"

	"github.com/e7canasta/stagecast/internal/executor"
	"github.com/e7canasta/stagecast/internal/frame"
	"github.com/e7canasta/stagecast/internal/id"
	"github.com/e7canasta/stagecast/internal/layer"
	"github.com/e7canasta/stagecast/internal/monitor"
	"github.com/e7canasta/stagecast/internal/producer"
)

// RouteMode selects which of a layer's frames a route consumer receives.
type RouteMode int

const (
	// Foreground delivers the layer's raw (pre-tween) rendered frame.
	Foreground RouteMode = iota
	// Background delivers a frame pulled from the layer's staged
	// background producer.
	Background
	// NextProducer delivers the background frame if one is staged, else
	// falls back to the foreground frame.
	NextProducer
)

// RouteToken is the caller-supplied opaque handle used to add and later
// remove a route. It is an alias of internal/id.Token, a string type;
// id.New mints a ready-made unique one.
type RouteToken = id.Token

type routeEntry struct {
	mode     RouteMode
	consumer producer.Consumer
}

// Stage is the single-writer coordinator for one output channel's
// layers, routes, and render pass.
type Stage struct {
	channelIndex int

	layers map[int]*layer.Layer
	routes map[int]map[RouteToken]routeEntry

	aggregator *aggregator
	exec       *executor.Executor
	mon        monitor.Sink
}

// New constructs a Stage for the given channel index. mon may be nil, in
// which case monitor events are discarded.
func New(channelIndex int, mon monitor.Sink) *Stage {
	if mon == nil {
		mon = monitor.NopSink{}
	}
	s := &Stage{
		channelIndex: channelIndex,
		layers:       make(map[int]*layer.Layer),
		routes:       make(map[int]map[RouteToken]routeEntry),
		exec:         executor.New(fmt.Sprintf("stage-%d", channelIndex)),
		mon:          mon,
	}
	s.aggregator = newAggregator(s)
	return s
}

// ChannelIndex returns the stable channel identifier this stage was
// constructed with.
func (s *Stage) ChannelIndex() int {
	return s.channelIndex
}

// Executor exposes the stage's executor for components (batchstage, the
// cross-stage coordinator) that need to invoke or poke it directly.
func (s *Stage) Executor() *executor.Executor {
	return s.exec
}

// Monitor returns the stage's event sink.
func (s *Stage) Monitor() monitor.Sink {
	return s.mon
}

// layerOrCreate returns the layer at index, creating an empty placeholder
// if absent. Must be called on the executor.
func (s *Stage) layerOrCreate(index int) *layer.Layer {
	l, ok := s.layers[index]
	if !ok {
		l = layer.New()
		s.layers[index] = l
	}
	return l
}

func (s *Stage) publish(path string, values ...any) {
	s.mon.Publish(monitor.Event{Path: path, Values: values, Timestamp: timeNow()})
}

// timeNow is a seam so tests can observe publish ordering without relying
// on wall-clock precision; production code just wants "now".
var timeNow = time.Now

// Load stages producer into layer index's background slot (or promotes
// it immediately and arms a one-shot pull of its first frame for the
// next render pass if preview is true), and arms auto-play if
// autoPlayDelta is non-nil.
func (s *Stage) Load(index int, prod producer.Producer, preview bool, autoPlayDelta *int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Load(prod, preview, autoPlayDelta)
		s.publish(fmt.Sprintf("/layer/%d/event/load", index), true)
		return nil, nil
	})
}

// Play promotes index's background producer (if any) to foreground and
// starts playback.
func (s *Stage) Play(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Play()
		s.publish(fmt.Sprintf("/layer/%d/event/play", index), true)
		return nil, nil
	})
}

// Preview promotes index's background producer and arms a one-shot pull
// of its first frame for the next render pass, without starting
// playback.
func (s *Stage) Preview(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Preview()
		s.publish(fmt.Sprintf("/layer/%d/event/load", index), true)
		return nil, nil
	})
}

// Pause freezes index's foreground producer.
func (s *Stage) Pause(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Pause()
		s.publish(fmt.Sprintf("/layer/%d/event/pause", index), true)
		return nil, nil
	})
}

// Resume returns a paused layer to playback.
func (s *Stage) Resume(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Resume()
		s.publish(fmt.Sprintf("/layer/%d/event/resume", index), true)
		return nil, nil
	})
}

// Stop halts playback, retaining index's foreground producer so a later
// Play with no intervening Load resumes it.
func (s *Stage) Stop(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).Stop()
		s.publish(fmt.Sprintf("/layer/%d/event/stop", index), true)
		return nil, nil
	})
}

// Clear removes the layer at index. Routes for that index are retained,
// becoming (or staying) a route-only layer.
func (s *Stage) Clear(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		delete(s.layers, index)
		s.publish(fmt.Sprintf("/layer/%d/event/clear", index), true)
		return nil, nil
	})
}

// ClearAll empties the layer table entirely. Routes are retained.
func (s *Stage) ClearAll() (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layers = make(map[int]*layer.Layer)
		s.publish("/event/clear", true)
		return nil, nil
	})
}

// ForegroundProducer returns index's current foreground producer.
func (s *Stage) ForegroundProducer(index int) (producer.Producer, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.layerOrCreate(index).Foreground(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(producer.Producer), nil
}

// BackgroundProducer returns index's current background producer.
func (s *Stage) BackgroundProducer(index int) (producer.Producer, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.layerOrCreate(index).Background(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(producer.Producer), nil
}

// Call forwards params to index's foreground producer.
func (s *Stage) Call(index int, params []string) (string, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.layerOrCreate(index).Call(params)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// TransformFunc computes a destination transform from the tween's current
// destination. A TransformFunc returning an error leaves the tween
// unchanged and surfaces the error through ApplyTransform's handle.
type TransformFunc func(current frame.Transform) (frame.Transform, error)

// ApplyTransform replaces index's tween with one animating from its
// current position to f(current destination) over duration frames using
// the named easing curve.
func (s *Stage) ApplyTransform(index int, f TransformFunc, duration uint32, easing frame.Easing, easingName string) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		if err := s.applyTransformLocked(index, f, duration, easing, easingName); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

func (s *Stage) applyTransformLocked(index int, f TransformFunc, duration uint32, easing frame.Easing, easingName string) error {
	l := s.layerOrCreate(index)
	src := l.CurrentTransform()
	dst, err := f(l.Tween().Destination)
	if err != nil {
		return err
	}
	l.SetTween(frame.New(src, dst, duration, easing, easingName))
	return nil
}

// TransformBatchEntry is one entry of an ApplyTransforms batch.
type TransformBatchEntry struct {
	Index      int
	Func       TransformFunc
	Duration   uint32
	Easing     frame.Easing
	EasingName string
}

// ApplyTransforms applies every entry as a single executor task, atomic
// as a batch: either all entries are evaluated in order, or the first
// failing entry aborts the remaining ones and its error surfaces.
func (s *Stage) ApplyTransforms(batch []TransformBatchEntry) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		for _, entry := range batch {
			if err := s.applyTransformLocked(entry.Index, entry.Func, entry.Duration, entry.Easing, entry.EasingName); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

// ClearTransform resets index's tween to the default identity tween.
func (s *Stage) ClearTransform(index int) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(index).SetTween(frame.Default())
		return nil, nil
	})
}

// ClearTransforms resets every existing layer's tween to default.
func (s *Stage) ClearTransforms() (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		for _, l := range s.layers {
			l.SetTween(frame.Default())
		}
		return nil, nil
	})
}

// CurrentTransform returns index's current transform without advancing
// its tween.
func (s *Stage) CurrentTransform(index int) (frame.Transform, error) {
	v, err := s.exec.Invoke(executor.High, func() (any, error) {
		return s.layerOrCreate(index).CurrentTransform(), nil
	})
	if err != nil {
		return frame.Transform{}, err
	}
	return v.(frame.Transform), nil
}

// AddRoute attaches consumer at layer index under mode, keyed by token so
// the caller can later remove it.
func (s *Stage) AddRoute(token RouteToken, index int, mode RouteMode, consumer producer.Consumer) executor.TypedHandle[struct{}] {
	return executor.SubmitVoid(s.exec, executor.High, func() error {
		m, ok := s.routes[index]
		if !ok {
			m = make(map[RouteToken]routeEntry)
			s.routes[index] = m
		}
		m[token] = routeEntry{mode: mode, consumer: consumer}
		s.publish("/event/add", index)
		return nil
	})
}

// RemoveRoute detaches token's route from layer index. Idempotent if the
// token is absent.
func (s *Stage) RemoveRoute(token RouteToken, index int) executor.TypedHandle[struct{}] {
	return executor.SubmitVoid(s.exec, executor.High, func() error {
		m, ok := s.routes[index]
		if !ok {
			return nil
		}
		delete(m, token)
		if len(m) == 0 {
			delete(s.routes, index)
		}
		s.publish("/event/remove", index)
		return nil
	})
}

// OnInteraction enqueues a pointer event, as a High-priority task, for
// hit-testing at the aggregator flush of the first render pass that
// starts after that task has run; a render pass already waiting in the
// Higher band runs first and does not see the event. Fire-and-forget.
func (s *Stage) OnInteraction(evt InteractionEvent) {
	executor.SubmitVoid(s.exec, executor.High, func() error {
		s.aggregator.offer(evt)
		return nil
	})
}

// activeIndices returns the sorted union of layer and route indices, per
// the render pass's invariant that every such index appears in the
// output map.
func (s *Stage) activeIndices() []int {
	seen := make(map[int]struct{}, len(s.layers)+len(s.routes))
	for i := range s.layers {
		seen[i] = struct{}{}
	}
	for i := range s.routes {
		seen[i] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
