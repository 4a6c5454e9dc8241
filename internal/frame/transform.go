package frame

// Transform describes the affine placement and visibility of a layer's
// picture: position and scale of the destination rectangle, a crop window
// in the source's normalized [0,1]^2 space, and an opacity multiplier.
//
// This mirrors the handful of fields a real frame_transform carries
// (translation, scale, crop, opacity) without the rest of a full video
// pipeline's transform stack (levels, audio gain, etc.), which belongs to
// the mixer this module does not implement.
type Transform struct {
	PositionX float64
	PositionY float64
	ScaleX    float64
	ScaleY    float64

	CropLowerLeftX  float64
	CropLowerLeftY  float64
	CropUpperRightX float64
	CropUpperRightY float64

	Opacity float64
}

// Identity is the neutral transform: full-frame, full-scale, fully opaque,
// uncropped. TweenedTransform's zero value tweens from and to this.
func Identity() Transform {
	return Transform{
		ScaleX:          1,
		ScaleY:          1,
		CropUpperRightX: 1,
		CropUpperRightY: 1,
		Opacity:         1,
	}
}

// Lerp linearly interpolates between a and b by t in [0,1]. Values outside
// [0,1] extrapolate, which lets an easing curve overshoot intentionally.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Interpolate blends every field of src toward dst by t, as produced by an
// easing curve applied to the tween's progress fraction.
func Interpolate(src, dst Transform, t float64) Transform {
	return Transform{
		PositionX:       Lerp(src.PositionX, dst.PositionX, t),
		PositionY:       Lerp(src.PositionY, dst.PositionY, t),
		ScaleX:          Lerp(src.ScaleX, dst.ScaleX, t),
		ScaleY:          Lerp(src.ScaleY, dst.ScaleY, t),
		CropLowerLeftX:  Lerp(src.CropLowerLeftX, dst.CropLowerLeftX, t),
		CropLowerLeftY:  Lerp(src.CropLowerLeftY, dst.CropLowerLeftY, t),
		CropUpperRightX: Lerp(src.CropUpperRightX, dst.CropUpperRightX, t),
		CropUpperRightY: Lerp(src.CropUpperRightY, dst.CropUpperRightY, t),
		Opacity:         Lerp(src.Opacity, dst.Opacity, t),
	}
}

// InverseProject maps a point in the mixer's normalized output space back
// into this transform's source space, undoing position and scale. It is
// used by the interaction aggregator's hit test: a pointer event's (x, y)
// is translated through each candidate layer's current transform to see
// whether it lands inside that layer's unit square.
func (t Transform) InverseProject(x, y float64) (float64, float64) {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return (x - t.PositionX) / sx, (y - t.PositionY) / sy
}
