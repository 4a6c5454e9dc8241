package stage

import (
	"fmt"

	"github.com/e7canasta/stagecast/internal/executor"
)

// SwapLayer exchanges the layer records at indices i and j on this
// stage, one executor task. If swapTransforms is false, the tweens at i
// and j are swapped back afterward — a tween belongs to the index, not
// to whichever content currently occupies it.
func (s *Stage) SwapLayer(i, j int, swapTransforms bool) (any, error) {
	return s.exec.Invoke(executor.High, func() (any, error) {
		s.layerOrCreate(i).SwapContentWith(s.layerOrCreate(j), swapTransforms)
		s.publish(fmt.Sprintf("/layer/%d/event/swap", i), j)
		if !swapTransforms {
			s.publish(fmt.Sprintf("/layer/%d/event/swaptransforms", i), j)
		}
		return nil, nil
	})
}

// SwapLayerAcross exchanges the layer at index i on this stage with the
// layer at index j on other, one layer between two stages.
//
// A self-reference (other == s) is a no-op and returns an immediately
// ready result, matching §7's policy for cross-stage swap with
// self-reference.
//
// To cross two single-writer executors without deadlock, both directions
// of this call must acquire the two executors in the same global order.
// The order used here is channel index, ascending: whichever stage has
// the lower channel index runs its task first and, from inside that
// task, synchronously invokes the paired task on the other stage's
// executor. Two concurrent calls in opposite directions between the same
// pair of stages therefore always serialize on the lower-indexed
// executor first, which is what prevents the classic "each side waits
// for the other" deadlock.
func (s *Stage) SwapLayerAcross(i int, other *Stage, j int, swapTransforms bool) (any, error) {
	if other == s {
		return executor.Ready(nil, nil).Wait()
	}

	outer, outerIndex := s, i
	inner, innerIndex := other, j
	if other.channelIndex < s.channelIndex {
		outer, outerIndex = other, j
		inner, innerIndex = s, i
	}

	return outer.exec.Invoke(executor.High, func() (any, error) {
		return inner.exec.Invoke(executor.High, func() (any, error) {
			performCrossSwap(outer, outerIndex, inner, innerIndex, swapTransforms)
			return nil, nil
		})
	})
}

// performCrossSwap runs with both stages' executors held (the outer
// executor's worker goroutine, and a synchronous nested invoke on the
// inner one), so it may touch both layer tables directly. Layers carry
// no monitor sink of their own: each stage publishes the events for the
// layers it currently holds, so nothing is re-parented here, and the
// swap events are published inside the same nested invocation, after
// the content has moved.
func performCrossSwap(a *Stage, aIndex int, b *Stage, bIndex int, swapTransforms bool) {
	aLayer := a.layerOrCreate(aIndex)
	bLayer := b.layerOrCreate(bIndex)
	aLayer.SwapContentWith(bLayer, swapTransforms)

	a.publish(fmt.Sprintf("/layer/%d/event/swap", aIndex), b.channelIndex, bIndex)
	b.publish(fmt.Sprintf("/layer/%d/event/swap", bIndex), a.channelIndex, aIndex)
	if !swapTransforms {
		a.publish(fmt.Sprintf("/layer/%d/event/swaptransforms", aIndex))
		b.publish(fmt.Sprintf("/layer/%d/event/swaptransforms", bIndex))
	}
}

// SwapLayers exchanges this stage's entire layer table with other's, one
// rendezvoused task under the same deterministic lock ordering as
// SwapLayerAcross. A self-reference is a no-op.
func (s *Stage) SwapLayers(other *Stage, swapTransforms bool) (any, error) {
	if other == s {
		return executor.Ready(nil, nil).Wait()
	}

	outer, inner := s, other
	if other.channelIndex < s.channelIndex {
		outer, inner = other, s
	}

	return outer.exec.Invoke(executor.High, func() (any, error) {
		return inner.exec.Invoke(executor.High, func() (any, error) {
			swapWholeTables(s, other, swapTransforms)
			return nil, nil
		})
	})
}

func swapWholeTables(a, b *Stage, swapTransforms bool) {
	aLayers, bLayers := a.layers, b.layers
	a.layers, b.layers = bLayers, aLayers

	if !swapTransforms {
		for i, al := range a.layers {
			if bl, ok := b.layers[i]; ok {
				al.SwapTweenWith(bl)
			}
		}
	}

	a.publish("/event/swap", b.channelIndex)
	b.publish("/event/swap", a.channelIndex)
}
