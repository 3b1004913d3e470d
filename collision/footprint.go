package collision

import (
	"math"

	"github.com/golang/geo/r2"

	clipper "github.com/ctessum/go.clipper"
)

// clipperScale converts metres to the integer grid clipper works on, giving
// millimetre resolution
const clipperScale = 1000

// Footprint returns the ego vehicle outline centred on the origin, length
// along x and width along y, inflated by margin with rounded corners
func Footprint(length, width, margin float64) Polygon {

	hl, hw := length/2, width/2

	box := Polygon{
		{X: -hl, Y: -hw},
		{X: hl, Y: -hw},
		{X: hl, Y: hw},
		{X: -hl, Y: hw},
	}

	if margin <= 0 {
		return box
	}

	// convert the box to a clipper path
	var path clipper.Path

	for _, pt := range box {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(pt.X * clipperScale),
			Y: clipper.CInt(pt.Y * clipperScale),
		})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(margin * clipperScale)

	// a convex box inflates to a single outline, keep the largest in case
	// rounding produced slivers
	var best Polygon

	for _, sol := range solution {

		poly := make(Polygon, 0, len(sol))

		for _, pt := range sol {
			poly = append(poly, r2.Point{
				X: float64(pt.X) / clipperScale,
				Y: float64(pt.Y) / clipperScale,
			})
		}

		if best == nil || math.Abs(poly.Area()) > math.Abs(best.Area()) {
			best = poly
		}
	}

	if len(best) < 3 {
		return box
	}

	return best
}
