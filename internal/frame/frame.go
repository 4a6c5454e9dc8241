// Package frame provides the minimal value types a compositing stage needs
// to talk about pictures and geometry without owning a decoder or renderer.
//
// Frame and Transform are intentionally thin: the stage treats frame pixel
// data as opaque bytes and transforms as plain affine parameters. Anything
// heavier (codecs, GPU upload, blending) belongs to the downstream mixer,
// which is out of scope for this module.
package frame

import "time"

// Frame is a single rendered picture handed between a producer, a layer,
// and the mixer. It carries just enough metadata for routing and
// diagnostics; pixel interpretation is the mixer's business.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
	TraceID   string

	// Transform is the geometric transform the layer had in effect when
	// this frame was produced. Zero value (Transform{}) on a frame that
	// never passed through a layer's tween, such as a route's raw output.
	Transform Transform
}

// Empty returns the canonical empty frame. Layers that are Stopped, route
// fan-out for a layer index with no content, and failed renders all
// collapse to this value rather than nil, so callers never need a nil
// check on the frame itself.
func Empty() Frame {
	return Frame{}
}

// IsEmpty reports whether f carries no pixel data.
func (f Frame) IsEmpty() bool {
	return len(f.Data) == 0
}
