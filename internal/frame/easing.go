package frame

// Easing maps a tween's linear progress fraction in [0,1] to an eased
// fraction, also nominally in [0,1] (curves that overshoot are legal).
// The stage never constructs or looks these up itself: callers pass the
// curve and its name to ApplyTransform. EasingByName lets a caller (AMCP
// command parsing, out of scope here) resolve a curve from a string.
type Easing func(progress float64) float64

// Linear is the identity easing curve: no acceleration.
func Linear(progress float64) float64 {
	return progress
}

// EaseInQuad accelerates from zero velocity.
func EaseInQuad(progress float64) float64 {
	return progress * progress
}

// EaseOutQuad decelerates to zero velocity.
func EaseOutQuad(progress float64) float64 {
	return progress * (2 - progress)
}

// EaseInOutQuad accelerates then decelerates.
func EaseInOutQuad(progress float64) float64 {
	if progress < 0.5 {
		return 2 * progress * progress
	}
	return -1 + (4-2*progress)*progress
}

var namedEasings = map[string]Easing{
	"linear":      Linear,
	"easeinquad":  EaseInQuad,
	"easeoutquad": EaseOutQuad,
	"easeinout":   EaseInOutQuad,
}

// EasingByName looks up a registered easing curve by its wire name,
// case-sensitively lowercase (callers normalize before lookup). Unknown
// names report ok=false so the caller can fall back to Linear rather than
// silently mis-tween.
func EasingByName(name string) (Easing, bool) {
	e, ok := namedEasings[name]
	return e, ok
}
