// Package camera models a calibrated fisheye camera mounted on the ego
// vehicle.  The world frame has its origin on the ground below the vehicle
// reference point, x along the viewing axis, y to the left and z up.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-fcw/config"
)

// ErrInvalidCalibration is returned when a camera can not be built from its
// configuration
var ErrInvalidCalibration = errors.New("invalid camera calibration")

// Space selects the pixel space image points are expressed in
type Space int

const (
	// Raw is the distorted sensor image
	Raw Space = iota
	// Rectified is the undistorted image produced by Rectify
	Rectified
)

func (s Space) String() string {
	if s == Rectified {
		return "rectified"
	}
	return "raw"
}

// Camera is an immutable calibrated camera
type Camera struct {
	imageSize     [2]int
	rectifiedSize [2]int
	k, kInv       *mat.Dense
	kRect         *mat.Dense
	kRectInv      *mat.Dense
	lens          Fisheye
	// rotation from camera to world, rows are the world axes expressed in
	// camera coordinates
	rot      *mat.Dense
	location r3.Vector
}

// New builds a Camera from its calibration.  The rotation is estimated from
// the horizon points and the translation is the mounting location.
func New(cfg config.Camera) (*Camera, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCalibration, err)
	}

	k := mat.NewDense(3, 3, nil)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			k.Set(i, j, cfg.K[i][j])
		}
	}

	var kInv mat.Dense

	if err := kInv.Inverse(k); err != nil {
		return nil, fmt.Errorf("%w: K is not invertible: %w", ErrInvalidCalibration, err)
	}

	// intrinsics of the rectified image scale with its size
	sx := float64(cfg.RectifiedSize[0]) / float64(cfg.ImageSize[0])
	sy := float64(cfg.RectifiedSize[1]) / float64(cfg.ImageSize[1])

	var kRect mat.Dense
	kRect.Mul(mat.NewDiagDense(3, []float64{sx, sy, 1}), k)

	var kRectInv mat.Dense

	if err := kRectInv.Inverse(&kRect); err != nil {
		return nil, fmt.Errorf("%w: rectified K is not invertible: %w", ErrInvalidCalibration, err)
	}

	c := &Camera{
		imageSize:     cfg.ImageSize,
		rectifiedSize: cfg.RectifiedSize,
		k:             k,
		kInv:          &kInv,
		kRect:         &kRect,
		kRectInv:      &kRectInv,
		lens:          Fisheye{cfg.D[0], cfg.D[1], cfg.D[2], cfg.D[3]},
		location:      r3.Vector{X: cfg.Location[0], Y: cfg.Location[1], Z: cfg.Location[2]},
	}

	// horizon annotations are made on the raw image
	rays := make([]r3.Vector, 0, len(cfg.Horizon))

	for i, p := range cfg.Horizon {

		n, ok := c.normalize(r2.Point{X: p[0], Y: p[1]}, Raw)

		if !ok {
			return nil, fmt.Errorf("%w: horizon point %d is outside the lens model", ErrInvalidCalibration, i)
		}

		rays = append(rays, r3.Vector{X: n.X, Y: n.Y, Z: 1})
	}

	rot, err := EstimateRotation(rays, cfg.ViewDirection)

	if err != nil {
		return nil, err
	}

	c.rot = rot

	return c, nil
}

// ImageSize returns the raw image width and height
func (c *Camera) ImageSize() (int, int) {
	return c.imageSize[0], c.imageSize[1]
}

// RectifiedSize returns the rectified image width and height
func (c *Camera) RectifiedSize() (int, int) {
	return c.rectifiedSize[0], c.rectifiedSize[1]
}

// K returns a copy of the intrinsic matrix of the given space
func (c *Camera) K(space Space) *mat.Dense {
	if space == Rectified {
		return mat.DenseCopyOf(c.kRect)
	}
	return mat.DenseCopyOf(c.k)
}

// Lens returns the fisheye coefficients
func (c *Camera) Lens() Fisheye {
	return c.lens
}

// Location returns the camera centre in world coordinates
func (c *Camera) Location() r3.Vector {
	return c.location
}

// Rotation returns a copy of the camera to world rotation
func (c *Camera) Rotation() *mat.Dense {
	return mat.DenseCopyOf(c.rot)
}

// Extrinsics returns the 3x4 world to camera transform [R' | -R't]
func (c *Camera) Extrinsics() *mat.Dense {

	rt := mat.NewDense(3, 4, nil)
	t := c.toCamera(r3.Vector{})

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rt.Set(i, j, c.rot.At(j, i))
		}
	}

	rt.Set(0, 3, t.X)
	rt.Set(1, 3, t.Y)
	rt.Set(2, 3, t.Z)

	return rt
}

// toCamera maps a world point into camera coordinates
func (c *Camera) toCamera(x r3.Vector) r3.Vector {
	return c.toCameraDir(x.Sub(c.location))
}

// toCameraDir rotates a world direction into the camera frame
func (c *Camera) toCameraDir(v r3.Vector) r3.Vector {
	// R' v
	return r3.Vector{
		X: c.rot.At(0, 0)*v.X + c.rot.At(1, 0)*v.Y + c.rot.At(2, 0)*v.Z,
		Y: c.rot.At(0, 1)*v.X + c.rot.At(1, 1)*v.Y + c.rot.At(2, 1)*v.Z,
		Z: c.rot.At(0, 2)*v.X + c.rot.At(1, 2)*v.Y + c.rot.At(2, 2)*v.Z,
	}
}

// toWorldDir rotates a camera direction into the world frame
func (c *Camera) toWorldDir(d r3.Vector) r3.Vector {
	return mulVec3(c.rot, d)
}

// normalize maps a pixel to undistorted normalized image coordinates
func (c *Camera) normalize(p r2.Point, space Space) (r2.Point, bool) {

	if space == Rectified {
		v := mulVec3(c.kRectInv, r3.Vector{X: p.X, Y: p.Y, Z: 1})
		return r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}, true
	}

	v := mulVec3(c.kInv, r3.Vector{X: p.X, Y: p.Y, Z: 1})

	return c.lens.Undistort(r2.Point{X: v.X / v.Z, Y: v.Y / v.Z})
}

// pixel maps undistorted normalized coordinates to a pixel
func (c *Camera) pixel(n r2.Point, space Space) r2.Point {

	k := c.kRect

	if space == Raw {
		n = c.lens.Distort(n)
		k = c.k
	}

	v := mulVec3(k, r3.Vector{X: n.X, Y: n.Y, Z: 1})

	return r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}
}

// EstimateRotation derives the camera to world rotation from rays through
// image points on the true horizon.  The horizon plane normal is fitted as
// the direction least aligned with all rays, the world x axis follows the
// first ray (negated for view direction "-x").
func EstimateRotation(rays []r3.Vector, viewDirection string) (*mat.Dense, error) {

	if len(rays) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 horizon rays, got %d", ErrInvalidCalibration, len(rays))
	}

	sign := 1.0

	switch viewDirection {
	case "x":
	case "-x":
		sign = -1
	default:
		return nil, fmt.Errorf("%w: view direction %q", ErrInvalidCalibration, viewDirection)
	}

	scatter := mat.NewSymDense(3, nil)

	for _, r := range rays {

		d := r.Normalize()
		v := []float64{d.X, d.Y, d.Z}

		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				scatter.SetSym(i, j, scatter.At(i, j)+v[i]*v[j])
			}
		}
	}

	var eig mat.EigenSym

	if ok := eig.Factorize(scatter, true); !ok {
		return nil, fmt.Errorf("%w: horizon fit did not converge", ErrInvalidCalibration)
	}

	values := eig.Values(nil)

	// two distinct directions span the horizon plane
	if values[1] < 1e-9 {
		return nil, fmt.Errorf("%w: horizon points are not distinct", ErrInvalidCalibration)
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	up := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0), Z: vectors.At(2, 0)}

	// image y grows downwards so up has a negative y component
	if math.Abs(up.Y) < 1e-9 {
		return nil, fmt.Errorf("%w: horizon is vertical in the image", ErrInvalidCalibration)
	}

	if up.Y > 0 {
		up = up.Mul(-1)
	}

	up = up.Normalize()

	direct := rays[0].Mul(sign)
	direct = direct.Sub(up.Mul(direct.Dot(up))).Normalize()

	right := up.Cross(direct).Normalize()

	return mat.NewDense(3, 3, []float64{
		direct.X, direct.Y, direct.Z,
		right.X, right.Y, right.Z,
		up.X, up.Y, up.Z,
	}), nil
}

func mulVec3(m mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}
