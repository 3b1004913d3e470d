package config

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

var assignments = map[string]bool{"lapjv": true, "munkres": true}

// MaxPredictionSamples bounds the points of a predicted path, every object
// samples prediction_length / prediction_step of them on each frame
const MaxPredictionSamples = 10000

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...)
}

// Validate checks the session configuration and reports all problems found
func (c Config) Validate() error {

	var err error

	if !(c.FPS > 0) {
		err = multierr.Append(err, invalid("fps must be positive, got %v", c.FPS))
	}

	err = multierr.Combine(err, c.Tracker.Validate(), c.FCW.Validate(),
		c.Detector.Validate(), c.Service.Validate())

	return err
}

// Validate checks the tracker settings
func (t Tracker) Validate() error {

	var err error

	if t.MaxAge < 0 {
		err = multierr.Append(err, invalid("tracker.max_age must not be negative, got %d", t.MaxAge))
	}

	if t.MinHits < 0 {
		err = multierr.Append(err, invalid("tracker.min_hits must not be negative, got %d", t.MinHits))
	}

	if t.MinAge < 0 {
		err = multierr.Append(err, invalid("tracker.min_age must not be negative, got %d", t.MinAge))
	}

	if t.IoUThreshold < 0 || t.IoUThreshold >= 1 {
		err = multierr.Append(err, invalid("tracker.iou_threshold must be in [0, 1), got %v", t.IoUThreshold))
	}

	if t.Assignment != "" && !assignments[t.Assignment] {
		err = multierr.Append(err, invalid("tracker.assignment %q is not lapjv or munkres", t.Assignment))
	}

	return err
}

// Validate checks the collision guard settings.  Polygon simplicity is
// checked when the guard is built.
func (f FCW) Validate() error {

	var err error

	if len(f.DangerZone) < 3 {
		err = multierr.Append(err, invalid("fcw.danger_zone needs at least 3 vertices, got %d", len(f.DangerZone)))
	}

	for i, p := range f.DangerZone {
		if !finite(p[0]) || !finite(p[1]) {
			err = multierr.Append(err, invalid("fcw.danger_zone vertex %d is not finite", i))
		}
	}

	if !(f.SafetyRadius > 0) {
		err = multierr.Append(err, invalid("fcw.safety_radius must be positive, got %v", f.SafetyRadius))
	}

	if !(f.PredictionStep > 0) {
		err = multierr.Append(err, invalid("fcw.prediction_step must be positive, got %v", f.PredictionStep))
	}

	if !(f.PredictionLength >= 0) || math.IsInf(f.PredictionLength, 0) {
		err = multierr.Append(err, invalid("fcw.prediction_length must be finite and not negative, got %v", f.PredictionLength))
	} else if f.PredictionStep > 0 && f.PredictionLength/f.PredictionStep > MaxPredictionSamples {
		err = multierr.Append(err, invalid("fcw.prediction_length %v at step %v exceeds %d path samples",
			f.PredictionLength, f.PredictionStep, MaxPredictionSamples))
	}

	if !(f.VehicleLength > 0) || !(f.VehicleWidth > 0) {
		err = multierr.Append(err, invalid("fcw vehicle size must be positive, got %vx%v", f.VehicleLength, f.VehicleWidth))
	}

	if f.VehicleMargin < 0 {
		err = multierr.Append(err, invalid("fcw.vehicle_margin must not be negative, got %v", f.VehicleMargin))
	}

	if f.TrailLength < 0 {
		err = multierr.Append(err, invalid("fcw.trail_length must not be negative, got %d", f.TrailLength))
	}

	return err
}

// Validate checks the detection filter settings
func (d Detector) Validate() error {

	var err error

	if d.MinScore < 0 || d.MinScore > 1 {
		err = multierr.Append(err, invalid("detector.min_score must be in [0, 1], got %v", d.MinScore))
	}

	if d.FrameMargin < 0 {
		err = multierr.Append(err, invalid("detector.frame_margin must not be negative, got %v", d.FrameMargin))
	}

	return err
}

// Validate checks the service settings
func (s Service) Validate() error {

	var err error

	if s.QueueSize < 1 {
		err = multierr.Append(err, invalid("service.queue_size must be at least 1, got %d", s.QueueSize))
	}

	if s.MaxSessions < 1 {
		err = multierr.Append(err, invalid("service.max_sessions must be at least 1, got %d", s.MaxSessions))
	}

	if s.ResultBuffer < 1 {
		err = multierr.Append(err, invalid("service.result_buffer must be at least 1, got %d", s.ResultBuffer))
	}

	return err
}

// Validate checks the camera calibration
func (c Camera) Validate() error {

	var err error

	if c.ImageSize[0] <= 0 || c.ImageSize[1] <= 0 {
		err = multierr.Append(err, invalid("camera image_size must be positive, got %v", c.ImageSize))
	}

	if c.RectifiedSize[0] <= 0 || c.RectifiedSize[1] <= 0 {
		err = multierr.Append(err, invalid("camera rectified_size must be positive, got %v", c.RectifiedSize))
	}

	if len(c.K) != 3 || len(c.K[0]) != 3 || len(c.K[1]) != 3 || len(c.K[2]) != 3 {
		err = multierr.Append(err, invalid("camera K must be 3x3"))
	} else if c.K[0][0] == 0 || c.K[1][1] == 0 {
		err = multierr.Append(err, invalid("camera K has zero focal length"))
	}

	if len(c.D) != 4 {
		err = multierr.Append(err, invalid("camera D must have 4 coefficients, got %d", len(c.D)))
	}

	if len(c.Horizon) < 2 {
		err = multierr.Append(err, invalid("camera horizon needs at least 2 points, got %d", len(c.Horizon)))
	}

	if c.ViewDirection != "x" && c.ViewDirection != "-x" {
		err = multierr.Append(err, invalid("camera view_direction must be x or -x, got %q", c.ViewDirection))
	}

	if len(c.Location) != 3 {
		err = multierr.Append(err, invalid("camera location must have 3 values, got %d", len(c.Location)))
	} else if !(c.Location[2] > 0) {
		err = multierr.Append(err, invalid("camera must be mounted above the ground, got height %v", c.Location[2]))
	}

	return err
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
