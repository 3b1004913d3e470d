// Package tracker implements an image plane multi object tracker in the
// style of SORT.  Each track carries a constant velocity Kalman filter over
// its box, detections are associated with predicted tracks by optimal
// assignment over an IoU cost and tracks unmatched for too long are retired.
package tracker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/swdee/go-fcw/config"
)

// Tracker represents the SORT tracker
type Tracker struct {
	// Maximum number of consecutive missed frames before a track is retired
	maxAge int
	// Hit streak a track must exceed to be reliable
	minHits int
	// Age a track must exceed to be reliable
	minAge int
	// Minimum IoU for a detection to be associated with a track
	iouThreshold float64
	// Assignment solver
	solver Solver
	// Current frame number
	frameID int
	// Source of new track IDs
	ids *IDGenerator
	// List of live tracks
	tracks []*Track
	logger *zap.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger, by default nothing is logged
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithIDGenerator sets the source of track IDs, by default a process wide
// generator is used
func WithIDGenerator(ids *IDGenerator) Option {
	return func(t *Tracker) {
		t.ids = ids
	}
}

// WithSolver overrides the assignment solver selected by the configuration
func WithSolver(solver Solver) Option {
	return func(t *Tracker) {
		t.solver = solver
	}
}

// New initializes and returns a new Tracker
func New(cfg config.Tracker, opts ...Option) (*Tracker, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	solver, err := NewSolver(cfg.Assignment)

	if err != nil {
		return nil, err
	}

	t := &Tracker{
		maxAge:       cfg.MaxAge,
		minHits:      cfg.MinHits,
		minAge:       cfg.MinAge,
		iouThreshold: cfg.IoUThreshold,
		solver:       solver,
		ids:          processIDs,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = zap.NewNop()
	}

	return t, nil
}

// Reset clears the tracked data.  IDs keep incrementing so tracks created
// after a reset never reuse an earlier ID.
func (t *Tracker) Reset() {
	t.frameID = 0
	t.tracks = make([]*Track, 0)
}

// FrameCount returns the number of frames processed since the last reset
func (t *Tracker) FrameCount() int {
	return t.frameID
}

// Tracks returns all live tracks
func (t *Tracker) Tracks() []*Track {
	out := make([]*Track, len(t.tracks))
	copy(out, t.tracks)
	return out
}

// Reliable returns the live tracks that were matched this frame and passed
// the hit streak and age thresholds
func (t *Tracker) Reliable() []*Track {

	var out []*Track

	for _, track := range t.tracks {
		if track.IsReliable(t.minHits, t.minAge) {
			out = append(out, track)
		}
	}

	return out
}

// Update runs one frame of the tracker with the given detections and
// returns the live tracks
func (t *Tracker) Update(objects []Object) ([]*Track, error) {

	t.frameID++

	// Step 1: predict current boxes, dropping tracks whose filter diverged
	live := t.tracks[:0]

	for _, track := range t.tracks {

		track.Predict()

		if !track.valid() {
			track.MarkAsRetired()
			t.logger.Warn("dropping track with invalid state",
				zap.Int("track_id", track.GetTrackID()))
			continue
		}

		live = append(live, track)
	}

	t.tracks = live

	// Step 2: associate detections with predicted tracks
	matchesIdx, unmatchTrackIdx, unmatchDetectionIdx, err := linearAssignment(
		t.solver,
		t.calcIouDistance(t.tracks, objects),
		len(t.tracks), len(objects), 1-t.iouThreshold,
	)

	if err != nil {
		return nil, fmt.Errorf("fatal error in linearAssignment call: %w", err)
	}

	// Step 3: update matched tracks
	for _, matchIdx := range matchesIdx {

		track := t.tracks[matchIdx[0]]
		wasTentative := track.GetTrackState() == Tentative

		if err := track.Update(objects[matchIdx[1]], t.minHits); err != nil {
			return nil, fmt.Errorf("error updating track: %w", err)
		}

		if wasTentative && track.GetTrackState() == Confirmed {
			t.logger.Debug("track confirmed", zap.Int("track_id", track.GetTrackID()))
		}
	}

	t.logger.Debug("frame associated",
		zap.Int("frame", t.frameID),
		zap.Int("matched", len(matchesIdx)),
		zap.Int("unmatched_tracks", len(unmatchTrackIdx)),
		zap.Int("unmatched_detections", len(unmatchDetectionIdx)),
	)

	// Step 4: init new tracks from unmatched detections
	for _, detIdx := range unmatchDetectionIdx {

		obj := objects[detIdx]

		track, err := NewTrack(obj, t.ids.GetNext())

		if err != nil {
			return nil, fmt.Errorf("error creating track: %w", err)
		}

		t.tracks = append(t.tracks, track)

		t.logger.Debug("tracking object",
			zap.Int("track_id", track.GetTrackID()),
			zap.String("label", obj.Label),
			zap.Float32("score", obj.Prob),
		)
	}

	// Step 5: retire tracks unmatched for longer than the maximum age
	kept := t.tracks[:0]

	for _, track := range t.tracks {

		if track.GetTimeSinceUpdate() > t.maxAge {
			track.MarkAsRetired()
			t.logger.Debug("tracking lost",
				zap.Int("track_id", track.GetTrackID()),
				zap.Int("age", track.GetAge()),
			)
			continue
		}

		kept = append(kept, track)
	}

	// clear the tail so retired tracks can be collected
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}

	t.tracks = kept

	return t.Tracks(), nil
}

// calcIous calculates the Intersection over Union (IoU) between two sets of rectangles
func calcIous(aRects, bRects []Rect) [][]float64 {

	var ious [][]float64

	if len(aRects)*len(bRects) == 0 {
		return ious
	}

	ious = make([][]float64, len(aRects))

	for ai := range aRects {
		ious[ai] = make([]float64, len(bRects))

		for bi := range bRects {
			ious[ai][bi] = aRects[ai].CalcIoU(bRects[bi])
		}
	}

	return ious
}

// calcIouDistance calculates the IoU distance between tracks and detections
func (t *Tracker) calcIouDistance(tracks []*Track, objects []Object) [][]float64 {

	aRects := make([]Rect, len(tracks))
	for i, track := range tracks {
		aRects[i] = track.GetRect()
	}

	bRects := make([]Rect, len(objects))
	for i, obj := range objects {
		bRects[i] = obj.Rect
	}

	costMatrix := calcIous(aRects, bRects)

	for _, row := range costMatrix {
		for j := range row {
			row[j] = 1 - row[j]
		}
	}

	return costMatrix
}
