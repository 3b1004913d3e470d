package render

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	fcw "github.com/swdee/go-fcw"
	"github.com/swdee/go-fcw/camera"
	"github.com/swdee/go-fcw/collision"
)

// nearPlane is the smallest depth in metres drawn in front of the camera
const nearPlane = 0.1

// Projector maps ground points into an image
type Projector interface {
	ProjectPoints(points []r3.Vector, near float64, space camera.Space) ([]r2.Point, []float64, []int)
}

// PathStyle defines the parameters used for rendering object paths
type PathStyle struct {
	// HistoryThickness is the line thickness of the observed trail, zero
	// skips the trail
	HistoryThickness int
	// PathThickness is the line thickness of the predicted path
	PathThickness int
	// CircleRadius is the radius of the marker at the current location
	CircleRadius int
	ZoneColor    color.RGBA
	ZoneAlpha    float64
}

// DefaultPathStyle returns default path style settings
func DefaultPathStyle() PathStyle {
	return PathStyle{
		HistoryThickness: 1,
		PathThickness:    2,
		CircleRadius:     4,
		ZoneColor:        Pink,
		ZoneAlpha:        0.3,
	}
}

// project maps ground plane points into pixels.  Runs of consecutive
// points in front of the camera are returned as separate polylines.
func project(proj Projector, pts []r2.Point, space camera.Space) [][]image.Point {

	world := make([]r3.Vector, len(pts))

	for i, p := range pts {
		world[i] = r3.Vector{X: p.X, Y: p.Y}
	}

	screen, _, index := proj.ProjectPoints(world, nearPlane, space)

	var runs [][]image.Point
	var run []image.Point

	for i, p := range screen {

		if i > 0 && index[i] != index[i-1]+1 && len(run) > 0 {
			runs = append(runs, run)
			run = nil
		}

		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}

		run = append(run, image.Pt(int(math.Round(p.X)), int(math.Round(p.Y))))
	}

	if len(run) > 0 {
		runs = append(runs, run)
	}

	return runs
}

func polyline(img *gocv.Mat, pts []image.Point, clr color.RGBA, thickness int) {
	for i := 1; i < len(pts); i++ {
		gocv.Line(img, pts[i-1], pts[i], clr, thickness)
	}
}

// Zone shades the danger zone on the image.  Only the part of the zone in
// front of the camera is drawn.
func Zone(img *gocv.Mat, proj Projector, zone collision.Polygon, space camera.Space,
	style PathStyle) {

	if len(zone) < 3 {
		return
	}

	closed := append(append(collision.Polygon{}, zone...), zone[0])
	runs := project(proj, closed, space)

	if len(runs) == 1 && len(runs[0]) == len(closed) {

		overlay := img.Clone()
		defer overlay.Close()

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{runs[0][:len(zone)]})
		defer pv.Close()

		gocv.FillPoly(&overlay, pv, style.ZoneColor)
		gocv.AddWeighted(overlay, style.ZoneAlpha, *img, 1-style.ZoneAlpha, 0, img)
	}

	for _, run := range runs {
		polyline(img, run, style.ZoneColor, style.PathThickness)
	}
}

// Paths draws the observed trail and the predicted path of every object in
// a result.  The trail uses the object color and the prediction is colored
// by risk.
func Paths(img *gocv.Mat, proj Projector, res *fcw.Result, space camera.Space, style PathStyle) {

	ids := make([]int, 0, len(res.Objects))

	for id := range res.Objects {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	for _, id := range ids {

		st := res.Objects[id]

		if style.HistoryThickness > 0 {
			for _, run := range project(proj, fromXY(st.History), space) {
				polyline(img, run, objectColor(id), style.HistoryThickness)
			}
		}

		riskClr := RiskColor(st.Risk)

		for _, run := range project(proj, fromXY(st.Path), space) {
			polyline(img, run, riskClr, style.PathThickness)
		}

		loc := project(proj, fromXY([]collision.XY{st.Location}), space)

		if len(loc) == 1 && len(loc[0]) == 1 {
			gocv.Circle(img, loc[0][0], style.CircleRadius, riskClr, -1)
		}
	}
}

func fromXY(xys []collision.XY) []r2.Point {

	out := make([]r2.Point, len(xys))

	for i, p := range xys {
		out[i] = r2.Point{X: p[0], Y: p[1]}
	}

	return out
}
