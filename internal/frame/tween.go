package frame

// TweenedTransform interpolates a Transform from Source to Destination
// over DurationFrames render-pass ticks using a named Easing curve.
//
// Invariant: FramesElapsed <= DurationFrames. A TweenedTransform is owned
// by exactly one layer and mutated only on the stage's executor; Fetch's
// advance parameter is how callers on that executor distinguish "advance
// me, I'm the render pass" from "just tell me where I am right now".
type TweenedTransform struct {
	Source         Transform
	Destination    Transform
	DurationFrames uint32
	FramesElapsed  uint32
	Easing         Easing
	EasingName     string
}

// Default returns the zero tween: source and destination both Identity,
// zero duration, which Fetch resolves to Identity regardless of progress.
func Default() TweenedTransform {
	id := Identity()
	return TweenedTransform{
		Source:      id,
		Destination: id,
		Easing:      Linear,
		EasingName:  "linear",
	}
}

// New constructs a tween from src to dst over duration frames using the
// given easing curve.
func New(src, dst Transform, duration uint32, easing Easing, easingName string) TweenedTransform {
	if easing == nil {
		easing = Linear
	}
	return TweenedTransform{
		Source:         src,
		Destination:    dst,
		DurationFrames: duration,
		Easing:         easing,
		EasingName:     easingName,
	}
}

// Fetch returns the transform at the tween's current progress. When
// advance is true (the render pass calling once per tick) FramesElapsed
// is incremented afterward, saturating at DurationFrames. Callers that
// merely inspect progress (interaction hit-test, get_current_transform)
// pass advance=false.
func (t *TweenedTransform) Fetch(advance bool) Transform {
	var result Transform
	if t.DurationFrames == 0 {
		result = t.Destination
	} else {
		progress := float64(t.FramesElapsed) / float64(t.DurationFrames)
		eased := progress
		if t.Easing != nil {
			eased = t.Easing(progress)
		}
		result = Interpolate(t.Source, t.Destination, eased)
	}

	if advance && t.FramesElapsed < t.DurationFrames {
		t.FramesElapsed++
	}

	return result
}

// AtDestination reports whether the tween has fully elapsed.
func (t TweenedTransform) AtDestination() bool {
	return t.FramesElapsed >= t.DurationFrames
}
