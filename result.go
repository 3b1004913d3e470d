package fcw

import (
	"time"

	"github.com/swdee/go-fcw/collision"
	"github.com/swdee/go-fcw/postprocess"
)

// Frame is the input of one pipeline pass
type Frame struct {
	// Timestamp is the capture time of the image in nanoseconds
	Timestamp int64 `json:"timestamp"`
	// RecvTimestamp is when the frame was received, filled in by the
	// pipeline when zero
	RecvTimestamp int64 `json:"recv_timestamp,omitempty"`
	// Detections are the object detections in rectified pixel coordinates
	Detections []postprocess.DetectResult `json:"detections"`
}

// DangerousDetection is the image box of an object at risk together with its
// distance to the vehicle
type DangerousDetection struct {
	// BBox is left, top, right, bottom in rectified pixels
	BBox     [4]float64 `json:"bbox"`
	Distance float64    `json:"distance"`
}

// Result is the output of one pipeline pass
type Result struct {
	Timestamp     int64 `json:"timestamp"`
	RecvTimestamp int64 `json:"recv_timestamp"`
	SendTimestamp int64 `json:"send_timestamp"`
	// Objects is the status of every world object keyed by identity
	Objects map[int]collision.ObjectStatus `json:"objects"`
	// DangerousDetections holds the objects flagged by the guard
	DangerousDetections map[int]DangerousDetection `json:"dangerous_detections"`
	// MinTimeToCollision is the smallest time to collision over all objects,
	// nil when no path enters the danger zone
	MinTimeToCollision *float64 `json:"min_time_to_collision"`
	Timing             *Timing  `json:"-"`
}

// Timing holds timers used for finding execution time of the pipeline
// stages
type Timing struct {
	ProcessStart time.Time
	TrackerStart time.Time
	TrackerEnd   time.Time
	ResolveEnd   time.Time
	GuardEnd     time.Time
	ProcessEnd   time.Time
}

// Tracker returns the time spent in the image plane tracker
func (t *Timing) Tracker() time.Duration {
	return t.TrackerEnd.Sub(t.TrackerStart)
}

// Guard returns the time spent on world tracking and collision checks
func (t *Timing) Guard() time.Duration {
	return t.GuardEnd.Sub(t.ResolveEnd)
}

// Total returns the time of the whole pass
func (t *Timing) Total() time.Duration {
	return t.ProcessEnd.Sub(t.ProcessStart)
}
