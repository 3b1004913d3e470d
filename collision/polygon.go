package collision

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/swdee/go-fcw/config"
)

// eps is the tolerance used for boundary and collinearity tests in metres
const eps = 1e-9

// Polygon is a closed polygon on the ground plane, the last vertex connects
// back to the first
type Polygon []r2.Point

// NewPolygon converts configured vertices to a polygon
func NewPolygon(points config.Points) Polygon {

	poly := make(Polygon, len(points))

	for i, p := range points {
		poly[i] = r2.Point{X: p[0], Y: p[1]}
	}

	return poly
}

// edge returns the i'th edge of the polygon
func (p Polygon) edge(i int) (r2.Point, r2.Point) {
	return p[i], p[(i+1)%len(p)]
}

// Area returns the signed area, positive for counter clockwise vertex order
func (p Polygon) Area() float64 {

	var sum float64

	for i := range p {
		a, b := p.edge(i)
		sum += a.Cross(b)
	}

	return sum / 2
}

// Simple reports whether the polygon has at least three vertices, a non zero
// area and no two non adjacent edges touching
func (p Polygon) Simple() bool {

	n := len(p)

	if n < 3 || math.Abs(p.Area()) < eps {
		return false
	}

	for i := 0; i < n; i++ {

		a, b := p.edge(i)

		if a.Sub(b).Norm() < eps {
			return false
		}

		for j := i + 1; j < n; j++ {

			// adjacent edges share a vertex
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}

			c, d := p.edge(j)

			if segmentsIntersect(a, b, c, d) {
				return false
			}
		}
	}

	return true
}

// Contains reports whether q lies inside the polygon or on its boundary
func (p Polygon) Contains(q r2.Point) bool {

	if len(p) < 3 {
		return false
	}

	inside := false

	for i := range p {

		a, b := p.edge(i)

		if onSegment(a, b, q) {
			return true
		}

		// even-odd rule with a ray cast towards +x
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := a.X + (q.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if q.X < x {
				inside = !inside
			}
		}
	}

	return inside
}

// Distance returns the distance from q to the polygon, zero when q is inside
func (p Polygon) Distance(q r2.Point) float64 {

	if p.Contains(q) {
		return 0
	}

	best := math.Inf(1)

	for i := range p {
		a, b := p.edge(i)
		best = math.Min(best, segmentDistance(q, a, b))
	}

	return best
}

// IntersectsPath reports whether a polyline touches the polygon, either by
// a vertex inside it or by a segment crossing one of its edges
func (p Polygon) IntersectsPath(path []r2.Point) bool {

	for _, q := range path {
		if p.Contains(q) {
			return true
		}
	}

	for k := 1; k < len(path); k++ {
		for i := range p {
			a, b := p.edge(i)
			if segmentsIntersect(path[k-1], path[k], a, b) {
				return true
			}
		}
	}

	return false
}

// FirstInside returns the index of the first path point inside the polygon
func (p Polygon) FirstInside(path []r2.Point) (int, bool) {

	for i, q := range path {
		if p.Contains(q) {
			return i, true
		}
	}

	return -1, false
}

// orientation returns the sign of the turn a->b->c
func orientation(a, b, c r2.Point) int {

	v := b.Sub(a).Cross(c.Sub(a))

	switch {
	case v > eps:
		return 1
	case v < -eps:
		return -1
	}

	return 0
}

// onSegment reports whether q lies on the segment ab
func onSegment(a, b, q r2.Point) bool {

	if orientation(a, b, q) != 0 {
		return false
	}

	return q.X >= math.Min(a.X, b.X)-eps && q.X <= math.Max(a.X, b.X)+eps &&
		q.Y >= math.Min(a.Y, b.Y)-eps && q.Y <= math.Max(a.Y, b.Y)+eps
}

// segmentsIntersect reports whether segments ab and cd share a point
func segmentsIntersect(a, b, c, d r2.Point) bool {

	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}

	return (o1 == 0 && onSegment(a, b, c)) ||
		(o2 == 0 && onSegment(a, b, d)) ||
		(o3 == 0 && onSegment(c, d, a)) ||
		(o4 == 0 && onSegment(c, d, b))
}

// segmentDistance returns the distance from q to the segment ab
func segmentDistance(q, a, b r2.Point) float64 {

	ab := b.Sub(a)
	l2 := ab.Dot(ab)

	if l2 < eps*eps {
		return q.Sub(a).Norm()
	}

	t := q.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))

	return q.Sub(a.Add(ab.Mul(t))).Norm()
}
