// Package kalman implements a small linear Kalman filter on top of gonum
// matrices.  It is shared by the image plane box tracker and the world
// object tracker which only differ in their motion and noise models.
package kalman

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimension is returned when a model matrix does not agree with the
// state or measurement size of the filter
var ErrDimension = errors.New("kalman: dimension mismatch")

// Model holds the matrices describing a linear system
type Model struct {
	// F is the state transition matrix (n x n)
	F *mat.Dense
	// H is the measurement matrix (m x n)
	H *mat.Dense
	// Q is the process noise covariance (n x n)
	Q *mat.Dense
	// R is the measurement noise covariance (m x m)
	R *mat.Dense
}

// Filter is a linear Kalman filter with state x and covariance P
type Filter struct {
	model Model
	x     *mat.VecDense
	p     *mat.Dense
	n, m  int
}

// New creates a Filter seeded with initial state x0 and covariance p0
func New(model Model, x0 []float64, p0 mat.Matrix) (*Filter, error) {

	n := len(x0)

	if model.F == nil || model.H == nil || model.Q == nil || model.R == nil {
		return nil, fmt.Errorf("%w: model matrices must all be set", ErrDimension)
	}

	if r, c := model.F.Dims(); r != n || c != n {
		return nil, fmt.Errorf("%w: F is %dx%d, state is %d", ErrDimension, r, c, n)
	}

	m, c := model.H.Dims()

	if c != n {
		return nil, fmt.Errorf("%w: H has %d columns, state is %d", ErrDimension, c, n)
	}

	if r, c := model.Q.Dims(); r != n || c != n {
		return nil, fmt.Errorf("%w: Q is %dx%d", ErrDimension, r, c)
	}

	if r, c := model.R.Dims(); r != m || c != m {
		return nil, fmt.Errorf("%w: R is %dx%d", ErrDimension, r, c)
	}

	if r, c := p0.Dims(); r != n || c != n {
		return nil, fmt.Errorf("%w: P is %dx%d", ErrDimension, r, c)
	}

	x := make([]float64, n)
	copy(x, x0)

	return &Filter{
		model: model,
		x:     mat.NewVecDense(n, x),
		p:     mat.DenseCopyOf(p0),
		n:     n,
		m:     m,
	}, nil
}

// Predict advances the state one step using the model transition
func (f *Filter) Predict() {
	f.PredictWith(f.model.F, f.model.Q)
}

// PredictWith advances the state using the given transition and process
// noise instead of the model ones
func (f *Filter) PredictWith(F, Q mat.Matrix) {

	var x mat.VecDense
	x.MulVec(F, f.x)
	f.x = &x

	var fp, p mat.Dense
	fp.Mul(F, f.p)
	p.Mul(&fp, F.T())
	p.Add(&p, Q)

	f.p = &p
}

// Update corrects the state with measurement z
func (f *Filter) Update(z []float64) error {

	if len(z) != f.m {
		return fmt.Errorf("%w: measurement has %d values, expected %d",
			ErrDimension, len(z), f.m)
	}

	H := f.model.H

	// innovation y = z - Hx
	var hx mat.VecDense
	hx.MulVec(H, f.x)

	y := mat.NewVecDense(f.m, nil)
	y.SubVec(mat.NewVecDense(f.m, z), &hx)

	// projected covariance S = HPH' + R
	var hp, hph mat.Dense
	hp.Mul(H, f.p)
	hph.Mul(&hp, H.T())
	hph.Add(&hph, f.model.R)

	s := symmetric(&hph)

	chol := mat.Cholesky{}

	if ok := chol.Factorize(s); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// B = PH', gain K = B S^-1 solved as S K' = B'
	var b mat.Dense
	b.Mul(f.p, H.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, b.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	gain := gainT.T()

	var ky mat.VecDense
	ky.MulVec(gain, y)
	f.x.AddVec(f.x, &ky)

	// Joseph form P = (I-KH)P(I-KH)' + KRK'
	var kh mat.Dense
	kh.Mul(gain, H)

	ikh := eye(f.n)
	ikh.Sub(ikh, &kh)

	var t1, t2 mat.Dense
	t1.Mul(ikh, f.p)
	t2.Mul(&t1, ikh.T())

	var kr, krk mat.Dense
	kr.Mul(gain, f.model.R)
	krk.Mul(&kr, gain.T())

	var p mat.Dense
	p.Add(&t2, &krk)

	f.p = mat.DenseCopyOf(symmetric(&p))

	return nil
}

// State returns a copy of the state vector
func (f *Filter) State() []float64 {
	out := make([]float64, f.n)
	copy(out, f.x.RawVector().Data)
	return out
}

// At returns state element i
func (f *Filter) At(i int) float64 {
	return f.x.AtVec(i)
}

// Set overwrites state element i
func (f *Filter) Set(i int, v float64) {
	f.x.SetVec(i, v)
}

// Covariance returns a copy of the state covariance
func (f *Filter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(f.p)
}

// Model returns the model matrices used by the filter
func (f *Filter) Model() Model {
	return f.model
}

// HasNaN reports whether any state element is NaN or infinite
func (f *Filter) HasNaN() bool {
	for _, v := range f.x.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// symmetric averages a square matrix with its transpose
func symmetric(a mat.Matrix) *mat.SymDense {

	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}

	return s
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
