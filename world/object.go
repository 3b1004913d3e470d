// Package world tracks objects on the ground plane.  Each object carries a
// constant acceleration Kalman filter keyed by the ID of the image track it
// was resolved from.
package world

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-fcw/kalman"
)

// state vector layout (x, vx, ax, y, vy, ay)
const (
	stateX = iota
	stateVX
	stateAX
	stateY
	stateVY
	stateAY
	stateDim
)

// Params tunes the world object filter
type Params struct {
	// DT is the time between frames in seconds
	DT float64
	// ProcessVariance scales the white noise acceleration model
	ProcessVariance float64
	// MeasurementStd is the standard deviation of a position observation in
	// metres
	MeasurementStd float64
	// TrailLength is the number of past locations kept per object
	TrailLength int
}

// DefaultParams returns the filter tuning for the given frame time
func DefaultParams(dt float64) Params {
	return Params{
		DT:              dt,
		ProcessVariance: 0.01,
		MeasurementStd:  2,
		TrailLength:     30,
	}
}

// Transition returns the constant acceleration transition matrix for a time
// step of dt
func Transition(dt float64) *mat.Dense {

	F := mat.NewDense(stateDim, stateDim, nil)

	for _, off := range []int{stateX, stateY} {
		F.Set(off, off, 1)
		F.Set(off, off+1, dt)
		F.Set(off, off+2, 0.5*dt*dt)
		F.Set(off+1, off+1, 1)
		F.Set(off+1, off+2, dt)
		F.Set(off+2, off+2, 1)
	}

	return F
}

func model(p Params) (kalman.Model, error) {

	Q, err := kalman.DiscreteWhiteNoise(3, p.DT, p.ProcessVariance, 2)

	if err != nil {
		return kalman.Model{}, err
	}

	H := mat.NewDense(2, stateDim, nil)
	H.Set(0, stateX, 1)
	H.Set(1, stateY, 1)

	v := p.MeasurementStd * p.MeasurementStd

	return kalman.Model{
		F: Transition(p.DT),
		H: H,
		Q: Q,
		R: mat.NewDense(2, 2, []float64{v, 0, 0, v}),
	}, nil
}

// Object is a single object tracked on the ground plane
type Object struct {
	id int
	kf *kalman.Filter
	// frames since the object was created
	age int
	// frames since the last observation
	sinceObserved int
}

// NewObject creates an object at the observed location with zero velocity
// and acceleration
func NewObject(id int, location r2.Point, p Params) (*Object, error) {

	m, err := model(p)

	if err != nil {
		return nil, err
	}

	x0 := make([]float64, stateDim)
	x0[stateX] = location.X
	x0[stateY] = location.Y

	// moderate position and high derivative uncertainty
	p0 := mat.NewDiagDense(stateDim, []float64{0.5, 1, 2, 0.5, 1, 2})

	kf, err := kalman.New(m, x0, p0)

	if err != nil {
		return nil, fmt.Errorf("error creating world filter: %w", err)
	}

	return &Object{id: id, kf: kf}, nil
}

// ID returns the identity shared with the image track
func (o *Object) ID() int {
	return o.id
}

// Age returns the number of frames since the object was created
func (o *Object) Age() int {
	return o.age
}

// SinceObserved returns the number of frames since the last observation
func (o *Object) SinceObserved() int {
	return o.sinceObserved
}

// Predict advances the object one frame
func (o *Object) Predict() {
	o.kf.Predict()
	o.age++
	o.sinceObserved++
}

// Update corrects the object with an observed location
func (o *Object) Update(location r2.Point) error {

	if err := o.kf.Update([]float64{location.X, location.Y}); err != nil {
		return fmt.Errorf("error updating object %d: %w", o.id, err)
	}

	o.sinceObserved = 0

	return nil
}

// Location returns the filtered ground plane position
func (o *Object) Location() r2.Point {
	return r2.Point{X: o.kf.At(stateX), Y: o.kf.At(stateY)}
}

// Velocity returns the filtered velocity in metres per second
func (o *Object) Velocity() r2.Point {
	return r2.Point{X: o.kf.At(stateVX), Y: o.kf.At(stateVY)}
}

// Acceleration returns the filtered acceleration
func (o *Object) Acceleration() r2.Point {
	return r2.Point{X: o.kf.At(stateAX), Y: o.kf.At(stateAY)}
}

// Speed returns the magnitude of the velocity
func (o *Object) Speed() float64 {
	return o.Velocity().Norm()
}

// Distance returns the distance from the ego origin
func (o *Object) Distance() float64 {
	return o.Location().Norm()
}

// FuturePath simulates the motion model forward in steps of step seconds
// for length seconds.  The first point is the current location, point i is
// the predicted location after i*step seconds.
func (o *Object) FuturePath(length, step float64) []r2.Point {
	return Path(o.kf.State(), length, step)
}

// Path simulates a state vector forward, see FuturePath
func Path(state []float64, length, step float64) []r2.Point {

	if !(step > 0) || length < 0 {
		return []r2.Point{{X: state[stateX], Y: state[stateY]}}
	}

	n := int(math.Ceil(length/step - 1e-9))

	F := Transition(step)
	x := mat.NewVecDense(stateDim, append([]float64(nil), state...))

	path := make([]r2.Point, 0, n+1)
	path = append(path, r2.Point{X: x.AtVec(stateX), Y: x.AtVec(stateY)})

	for i := 0; i < n; i++ {
		var next mat.VecDense
		next.MulVec(F, x)
		x = &next
		path = append(path, r2.Point{X: x.AtVec(stateX), Y: x.AtVec(stateY)})
	}

	return path
}

// State returns a copy of the filter state (x, vx, ax, y, vy, ay)
func (o *Object) State() []float64 {
	return o.kf.State()
}

// SetVelocity overwrites the velocity estimate, used to seed known motion
func (o *Object) SetVelocity(v r2.Point) {
	o.kf.Set(stateVX, v.X)
	o.kf.Set(stateVY, v.Y)
}
