// Package postprocess holds the detections produced by an external object
// detector and the filters applied to them before tracking.
package postprocess

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// BoxRect are the dimensions of the bounding box of a detect object in
// rectified pixel coordinates
type BoxRect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Width returns the box width
func (b BoxRect) Width() float64 {
	return b.Right - b.Left
}

// Height returns the box height
func (b BoxRect) Height() float64 {
	return b.Bottom - b.Top
}

// ReferencePoint returns the centre of the bottom edge
func (b BoxRect) ReferencePoint() r2.Point {
	return r2.Point{X: (b.Left + b.Right) / 2, Y: b.Bottom}
}

// Valid reports whether the box has finite coordinates and positive size
func (b BoxRect) Valid() bool {
	for _, v := range []float64{b.Left, b.Top, b.Right, b.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Right > b.Left && b.Bottom > b.Top
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int `json:"class,omitempty"`
	// Label is the class name, resolved from Class when not given
	Label string `json:"label"`
	// Box are the bounding box dimensions of the object location
	Box BoxRect `json:"bbox"`
	// Probability is the confidence score of the object detected
	Probability float32 `json:"score"`
	// ID is a unique ID assigned to the detection result
	ID int64 `json:"id,omitempty"`
}

// MarshalJSON encodes the box as [left, top, right, bottom]
func (b BoxRect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.Left, b.Top, b.Right, b.Bottom})
}

// UnmarshalJSON decodes a box from [left, top, right, bottom]
func (b *BoxRect) UnmarshalJSON(data []byte) error {

	var v []float64

	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("error decoding bbox: %w", err)
	}

	if len(v) != 4 {
		return fmt.Errorf("bbox needs 4 values, got %d", len(v))
	}

	*b = BoxRect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}

	return nil
}
