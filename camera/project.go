package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// parallelEpsilon is the smallest vertical ray component accepted when
// intersecting rays with the ground plane
const parallelEpsilon = 1e-9

// UndistortPoints removes lens distortion from raw pixels and returns the
// corresponding pixels of an ideal pinhole camera with the same intrinsics.
// Points outside the lens model are returned as NaN.
func (c *Camera) UndistortPoints(pixels []r2.Point) []r2.Point {

	out := make([]r2.Point, len(pixels))

	for i, p := range pixels {

		n, ok := c.normalize(p, Raw)

		if !ok {
			out[i] = r2.Point{X: nan(), Y: nan()}
			continue
		}

		v := mulVec3(c.k, r3.Vector{X: n.X, Y: n.Y, Z: 1})
		out[i] = r2.Point{X: v.X, Y: v.Y}
	}

	return out
}

// DistortPoints is the inverse of UndistortPoints
func (c *Camera) DistortPoints(pixels []r2.Point) []r2.Point {

	out := make([]r2.Point, len(pixels))

	for i, p := range pixels {
		v := mulVec3(c.kInv, r3.Vector{X: p.X, Y: p.Y, Z: 1})
		out[i] = c.pixel(r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}, Raw)
	}

	return out
}

// ProjectPoints projects world points into the image of the given space.
// Points whose depth in front of the camera is not greater than near are
// dropped, index holds the position of each kept point in the input.
func (c *Camera) ProjectPoints(points []r3.Vector, near float64,
	space Space) (screen []r2.Point, depth []float64, index []int) {

	for i, x := range points {

		v := c.toCamera(x)

		if !(v.Z > near) {
			continue
		}

		n := r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}

		screen = append(screen, c.pixel(n, space))
		depth = append(depth, v.Z)
		index = append(index, i)
	}

	return screen, depth, index
}

// ImageToWorld intersects the camera rays through the given pixels with the
// ground plane z=0.  Pixels whose ray is parallel to the ground, meets it
// behind the camera or falls outside the lens model are omitted, index
// holds the position of each returned point in the input.
func (c *Camera) ImageToWorld(pixels []r2.Point, space Space) (world []r3.Vector, index []int) {

	for i, p := range pixels {

		x, ok := c.pixelToGround(p, space)

		if !ok {
			continue
		}

		world = append(world, x)
		index = append(index, i)
	}

	return world, index
}

func (c *Camera) pixelToGround(p r2.Point, space Space) (r3.Vector, bool) {

	n, ok := c.normalize(p, space)

	if !ok {
		return r3.Vector{}, false
	}

	s := c.toWorldDir(r3.Vector{X: n.X, Y: n.Y, Z: 1})

	if math.Abs(s.Z) < parallelEpsilon {
		return r3.Vector{}, false
	}

	t := -c.location.Z / s.Z

	if t <= 0 {
		return r3.Vector{}, false
	}

	x := c.location.Add(s.Mul(t))
	x.Z = 0

	return x, true
}

// RectifyPoints maps raw pixels to rectified pixels.  Points outside the
// lens model are returned as NaN.
func (c *Camera) RectifyPoints(pixels []r2.Point) []r2.Point {

	out := make([]r2.Point, len(pixels))

	for i, p := range pixels {

		n, ok := c.normalize(p, Raw)

		if !ok {
			out[i] = r2.Point{X: nan(), Y: nan()}
			continue
		}

		out[i] = c.pixel(n, Rectified)
	}

	return out
}

// HorizonLine returns two image points on the horizon in the given space,
// the vanishing point of the viewing axis and one 45 degrees to its left
func (c *Camera) HorizonLine(space Space) (r2.Point, r2.Point) {

	view := c.toWorldDir(r3.Vector{Z: 1})
	view.Z = 0
	view = view.Normalize()

	left := view.Add(r3.Vector{X: -view.Y, Y: view.X})

	vanish := func(d r3.Vector) r2.Point {
		v := c.toCameraDir(d)
		return c.pixel(r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}, space)
	}

	return vanish(view), vanish(left)
}

func nan() float64 {
	return math.NaN()
}
