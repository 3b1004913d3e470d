package preprocess

import (
	"image"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/swdee/go-fcw/camera"
)

// Rectifier resamples raw camera frames into the rectified pixel space the
// detector and tracker work in
type Rectifier struct {
	// width and height of the rectified image
	width  int
	height int
	// k and d are the raw intrinsics and fisheye coefficients, kRect the
	// pinhole intrinsics of the rectified image
	k     gocv.Mat
	d     gocv.Mat
	kRect gocv.Mat
}

// NewRectifier prepares the calibration matrices of the camera
func NewRectifier(cam *camera.Camera) *Rectifier {

	w, h := cam.RectifiedSize()

	return &Rectifier{
		width:  w,
		height: h,
		k:      toMat(cam.K(camera.Raw)),
		d:      lensMat(cam.Lens()),
		kRect:  toMat(cam.K(camera.Rectified)),
	}
}

// Size returns the width and height of rectified images
func (r *Rectifier) Size() (int, int) {
	return r.width, r.height
}

// Rectify writes the rectified version of src to dest.  Pixels that map
// outside the raw image are black.
func (r *Rectifier) Rectify(src gocv.Mat, dest *gocv.Mat) {
	gocv.FisheyeUndistortImageWithParams(src, dest, r.k, r.d, r.kRect,
		image.Pt(r.width, r.height))
}

// Close frees the calibration matrices
func (r *Rectifier) Close() error {
	return multierr.Combine(r.k.Close(), r.d.Close(), r.kRect.Close())
}

// toMat copies a gonum matrix into a CV_64F Mat
func toMat(m mat.Matrix) gocv.Mat {

	rows, cols := m.Dims()
	out := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.SetDoubleAt(i, j, m.At(i, j))
		}
	}

	return out
}

func lensMat(lens camera.Fisheye) gocv.Mat {

	out := gocv.NewMatWithSize(1, 4, gocv.MatTypeCV64F)

	for i, v := range lens {
		out.SetDoubleAt(0, i, v)
	}

	return out
}
