package tracker

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-fcw/kalman"
)

// state vector layout of the box filter
const (
	stateCX = iota
	stateCY
	stateS
	stateR
	stateVCX
	stateVCY
	stateVS
	stateDim
)

// boxModel returns the constant velocity box model.  Position, area and
// their velocities are tracked, the aspect ratio is treated as constant.
func boxModel() kalman.Model {

	F := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		F.Set(i, i, 1)
	}

	F.Set(stateCX, stateVCX, 1)
	F.Set(stateCY, stateVCY, 1)
	F.Set(stateS, stateVS, 1)

	H := mat.NewDense(4, stateDim, nil)

	for i := 0; i < 4; i++ {
		H.Set(i, i, 1)
	}

	// area and aspect ratio measurements are less certain than position
	R := mat.NewDense(4, 4, nil)
	R.Set(0, 0, 1)
	R.Set(1, 1, 1)
	R.Set(2, 2, 10)
	R.Set(3, 3, 10)

	Q := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < 4; i++ {
		Q.Set(i, i, 1)
	}

	Q.Set(stateVCX, stateVCX, 0.01)
	Q.Set(stateVCY, stateVCY, 0.01)
	Q.Set(stateVS, stateVS, 0.0001)

	return kalman.Model{F: F, H: H, Q: Q, R: R}
}

// BoxFilter is the Kalman filter of a single image plane track
type BoxFilter struct {
	kf *kalman.Filter
}

// NewBoxFilter initializes a filter at the given box with zero velocity and
// a large velocity uncertainty
func NewBoxFilter(rect Rect) (*BoxFilter, error) {

	z := rect.GetXysr()

	x0 := make([]float64, stateDim)
	copy(x0, z[:])

	p0 := make([]float64, stateDim)

	for i := range p0 {
		p0[i] = 10
	}

	for i := stateVCX; i < stateDim; i++ {
		p0[i] *= 1000
	}

	kf, err := kalman.New(boxModel(), x0, mat.NewDiagDense(stateDim, p0))

	if err != nil {
		return nil, fmt.Errorf("error creating box filter: %w", err)
	}

	return &BoxFilter{kf: kf}, nil
}

// Predict advances the box one frame.  A shrinking box is not allowed to
// reach a negative area.
func (b *BoxFilter) Predict() Rect {

	if b.kf.At(stateVS)+b.kf.At(stateS) <= 0 {
		b.kf.Set(stateVS, 0)
	}

	b.kf.Predict()

	return b.Rect()
}

// Update corrects the filter with an observed box
func (b *BoxFilter) Update(rect Rect) error {

	z := rect.GetXysr()

	if err := b.kf.Update(z[:]); err != nil {
		return fmt.Errorf("error updating box filter: %w", err)
	}

	return nil
}

// Rect returns the current box estimate
func (b *BoxFilter) Rect() Rect {
	return NewRectFromXysr(Xysr{
		b.kf.At(stateCX), b.kf.At(stateCY), b.kf.At(stateS), b.kf.At(stateR),
	})
}

// Velocity returns the estimated box centre velocity in pixels per frame
func (b *BoxFilter) Velocity() (float64, float64) {
	return b.kf.At(stateVCX), b.kf.At(stateVCY)
}

// Valid reports whether the state is free of NaN and infinite values
func (b *BoxFilter) Valid() bool {
	return !b.kf.HasNaN()
}
