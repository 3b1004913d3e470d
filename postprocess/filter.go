package postprocess

import (
	"github.com/swdee/go-fcw/config"
)

// Filter drops detections that should not be tracked
type Filter struct {
	classes  map[string]bool
	minScore float32
	margin   float64
	width    float64
	height   float64
}

// NewFilter builds a Filter from the detector configuration.  Frame margin
// checks use the given image size, a zero size disables them.
func NewFilter(cfg config.Detector, width, height int) *Filter {

	f := &Filter{
		minScore: float32(cfg.MinScore),
		margin:   cfg.FrameMargin,
		width:    float64(width),
		height:   float64(height),
	}

	if len(cfg.Classes) > 0 {
		f.classes = make(map[string]bool, len(cfg.Classes))
		for _, c := range cfg.Classes {
			f.classes[c] = true
		}
	}

	return f
}

// Keep reports whether the detection passes the filter
func (f *Filter) Keep(det DetectResult) bool {

	if !det.Box.Valid() {
		return false
	}

	if det.Probability < f.minScore {
		return false
	}

	if f.classes != nil && !f.classes[det.Label] {
		return false
	}

	if f.margin > 0 && f.width > 0 && f.height > 0 {
		return InFrame(det.Box, f.width, f.height, f.margin)
	}

	return true
}

// Apply returns the detections passing the filter
func (f *Filter) Apply(dets []DetectResult) []DetectResult {

	out := make([]DetectResult, 0, len(dets))

	for _, det := range dets {
		if f.Keep(det) {
			out = append(out, det)
		}
	}

	return out
}

// InFrame reports whether the box lies inside the image with at least
// margin pixels to every border.  Objects cut by the border have an
// unreliable bottom edge.
func InFrame(b BoxRect, width, height, margin float64) bool {
	return b.Left > margin && b.Right < width-margin &&
		b.Top > margin && b.Bottom < height-margin
}
