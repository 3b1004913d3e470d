package camera

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	undistortIterations = 10
	undistortEpsilon    = 1e-8
)

// Fisheye holds the four coefficients of the equidistant fisheye lens
// model where the distorted angle is
// theta_d = theta * (1 + k1 theta^2 + k2 theta^4 + k3 theta^6 + k4 theta^8)
type Fisheye [4]float64

// Distort applies the lens model to an undistorted normalized image point
func (f Fisheye) Distort(p r2.Point) r2.Point {

	r := p.Norm()

	if r < undistortEpsilon {
		return p
	}

	theta := math.Atan(r)

	return p.Mul(f.thetaD(theta) / r)
}

// Undistort inverts the lens model for a distorted normalized image point.
// The boolean result is false when the point lies outside the field of view
// the model can represent.
func (f Fisheye) Undistort(p r2.Point) (r2.Point, bool) {

	thetaD := p.Norm()

	if thetaD < undistortEpsilon {
		return p, true
	}

	// newton iterations on theta
	theta := thetaD
	converged := false

	for i := 0; i < undistortIterations; i++ {

		t2 := theta * theta
		t4 := t2 * t2
		t6 := t4 * t2
		t8 := t6 * t2

		fx := theta*(1+f[0]*t2+f[1]*t4+f[2]*t6+f[3]*t8) - thetaD
		dfx := 1 + 3*f[0]*t2 + 5*f[1]*t4 + 7*f[2]*t6 + 9*f[3]*t8

		step := fx / dfx
		theta -= step

		if math.Abs(step) < undistortEpsilon {
			converged = true
			break
		}
	}

	if math.IsNaN(theta) || theta <= 0 || theta >= math.Pi/2 {
		return r2.Point{X: math.NaN(), Y: math.NaN()}, false
	}

	if !converged && math.Abs(f.thetaD(theta)-thetaD) > 1e-6 {
		return r2.Point{X: math.NaN(), Y: math.NaN()}, false
	}

	return p.Mul(math.Tan(theta) / thetaD), true
}

func (f Fisheye) thetaD(theta float64) float64 {
	t2 := theta * theta
	t4 := t2 * t2
	t6 := t4 * t2
	t8 := t6 * t2
	return theta * (1 + f[0]*t2 + f[1]*t4 + f[2]*t6 + f[3]*t8)
}
