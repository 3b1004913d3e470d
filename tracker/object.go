package tracker

import "github.com/swdee/go-fcw/postprocess"

// Object is a single detection as seen by the tracker
type Object struct {
	Rect  Rect
	Label string
	Prob  float32
	// ID of the originating detection, carried through to the track so
	// results can be matched back to the detector output
	ID int64
}

// NewObject returns an Object for a detection box
func NewObject(rect Rect, label string, prob float32, id int64) Object {
	return Object{Rect: rect, Label: label, Prob: prob, ID: id}
}

// DetectionsToObjects converts detector results in rectified pixel
// coordinates into tracker objects
func DetectionsToObjects(dets []postprocess.DetectResult) []Object {

	objs := make([]Object, len(dets))

	for i, det := range dets {
		objs[i] = NewObject(NewRect(det.Box.Left, det.Box.Top, det.Box.Right, det.Box.Bottom),
			det.Label, det.Probability, det.ID)
	}

	return objs
}
