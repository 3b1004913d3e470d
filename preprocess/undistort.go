package preprocess

import (
	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/swdee/go-fcw/camera"
)

// UndistortPoints maps raw pixels to the pixels of the ideal pinhole camera
// of the given space using the OpenCV fisheye model.  It is the reference
// the camera package's own point model is checked against.
func UndistortPoints(cam *camera.Camera, pixels []r2.Point, space camera.Space) []r2.Point {

	if len(pixels) == 0 {
		return nil
	}

	src := gocv.NewMatWithSize(len(pixels), 1, gocv.MatTypeCV64FC2)
	defer src.Close()

	for i, p := range pixels {
		src.SetDoubleAt(i, 0, p.X)
		src.SetDoubleAt(i, 1, p.Y)
	}

	k := toMat(cam.K(camera.Raw))
	defer k.Close()

	d := lensMat(cam.Lens())
	defer d.Close()

	p := toMat(cam.K(space))
	defer p.Close()

	// no rectifying rotation
	rot := gocv.NewMat()
	defer rot.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.FisheyeUndistortPoints(src, &dst, k, d, rot, p)

	out := make([]r2.Point, len(pixels))

	for i := range out {
		out[i] = r2.Point{X: dst.GetDoubleAt(i, 0), Y: dst.GetDoubleAt(i, 1)}
	}

	return out
}
