// Package reference turns image plane tracks into ground plane points.
package reference

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/swdee/go-fcw/camera"
	"github.com/swdee/go-fcw/tracker"
)

// Projector back-projects image points onto the ground plane
type Projector interface {
	ImageToWorld(pixels []r2.Point, space camera.Space) ([]r3.Vector, []int)
}

// Point returns the reference point of a box, the centre of its bottom edge
// where an upright object touches the ground
func Point(rect tracker.Rect) r2.Point {
	return rect.BottomCenter()
}

// Resolve back-projects the reference points of all given tracks in a
// single batch and returns the ground point of each track keyed by track
// ID.  Tracks whose ray does not meet the ground are omitted.
func Resolve(tracks []*tracker.Track, proj Projector, space camera.Space) map[int]r3.Vector {

	out := make(map[int]r3.Vector, len(tracks))

	if len(tracks) == 0 {
		return out
	}

	pixels := make([]r2.Point, len(tracks))

	for i, track := range tracks {
		pixels[i] = Point(track.GetRect())
	}

	world, index := proj.ImageToWorld(pixels, space)

	for k, i := range index {
		out[tracks[i].GetTrackID()] = world[k]
	}

	return out
}
