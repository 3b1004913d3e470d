package tracker

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Xysr (center x, center y, area, aspect ratio) is the measurement form of
// a box used by the box Kalman filter
type Xysr [4]float64

// Rect represents an axis aligned box by its top left and bottom right
// corners in pixel coordinates
type Rect struct {
	r2.Rect
}

// NewRect creates a Rect from its corners (x1, y1, x2, y2)
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{r2.RectFromPoints(r2.Point{X: x1, Y: y1}, r2.Point{X: x2, Y: y2})}
}

// NewRectFromXysr converts the Kalman filter box form back to corners
func NewRectFromXysr(z Xysr) Rect {

	w := math.Sqrt(math.Max(z[2]*z[3], 0))
	h := 0.0

	if w > 0 {
		h = z[2] / w
	}

	return Rect{r2.Rect{
		X: r1.Interval{Lo: z[0] - w/2, Hi: z[0] + w/2},
		Y: r1.Interval{Lo: z[1] - h/2, Hi: z[1] + h/2},
	}}
}

// TLX returns the top-left x coordinate of the rectangle
func (r Rect) TLX() float64 {
	return r.X.Lo
}

// TLY returns the top-left y coordinate of the rectangle
func (r Rect) TLY() float64 {
	return r.Y.Lo
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float64 {
	return r.X.Hi
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float64 {
	return r.Y.Hi
}

// Width returns the width of the rectangle
func (r Rect) Width() float64 {
	return r.X.Length()
}

// Height returns the height of the rectangle
func (r Rect) Height() float64 {
	return r.Y.Length()
}

// Area returns the area of the rectangle, zero for an empty one
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// BottomCenter returns the horizontal midpoint of the bottom edge, the
// point where an upright object touches the ground
func (r Rect) BottomCenter() r2.Point {
	return r2.Point{X: r.X.Center(), Y: r.Y.Hi}
}

// Tlbr returns the corners as (x1, y1, x2, y2)
func (r Rect) Tlbr() [4]float64 {
	return [4]float64{r.X.Lo, r.Y.Lo, r.X.Hi, r.Y.Hi}
}

// GetXysr converts the rectangle to Xysr (center x, center y, area, aspect
// ratio) format
func (r Rect) GetXysr() Xysr {

	w, h := r.Width(), r.Height()
	aspect := 0.0

	if h > 0 {
		aspect = w / h
	}

	c := r.Center()

	return Xysr{c.X, c.Y, w * h, aspect}
}

// CalcIoU calculates the Intersection over Union (IoU) with another rectangle
func (r Rect) CalcIoU(other Rect) float64 {

	inter := r.Intersection(other.Rect)

	if inter.IsEmpty() {
		return 0
	}

	interArea := inter.Size().X * inter.Size().Y
	union := r.Area() + other.Area() - interArea

	if union <= 0 {
		return 0
	}

	return interArea / union
}
