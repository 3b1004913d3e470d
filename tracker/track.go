package tracker

import (
	"fmt"
)

// TrackState represents the lifecycle state of a track
type TrackState int

const (
	// Tentative tracks have not been matched often enough to be trusted
	Tentative TrackState = iota
	// Confirmed tracks have passed the hit streak threshold at least once
	Confirmed
	// Retired tracks have been unmatched for longer than the maximum age
	Retired
)

func (s TrackState) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Retired:
		return "retired"
	}
	return fmt.Sprintf("TrackState(%d)", int(s))
}

// Track is a single image plane track of an object
type Track struct {
	// Kalman filter used for tracking
	filter *BoxFilter
	// Bounding box estimate after the latest predict or update
	rect Rect
	// Current state of the track
	state TrackState
	// Unique ID for the track
	trackID int
	// Score of the last matched detection
	score float32
	// Label of the last matched detection
	label string
	// ID of the last matched detection
	detectionID int64
	// Number of matched frames
	hits int
	// Number of consecutive matched frames
	hitStreak int
	// Frames since the track was created
	age int
	// Frames since the last match
	timeSinceUpdate int
}

// NewTrack creates a tentative track from an unmatched detection
func NewTrack(obj Object, trackID int) (*Track, error) {

	filter, err := NewBoxFilter(obj.Rect)

	if err != nil {
		return nil, err
	}

	return &Track{
		filter:      filter,
		rect:        obj.Rect,
		state:       Tentative,
		trackID:     trackID,
		score:       obj.Prob,
		label:       obj.Label,
		detectionID: obj.ID,
	}, nil
}

// GetRect returns the bounding box of the tracked object
func (t *Track) GetRect() Rect {
	return t.rect
}

// GetTrackState returns the current state of the track
func (t *Track) GetTrackState() TrackState {
	return t.state
}

// GetTrackID returns the unique ID for the track
func (t *Track) GetTrackID() int {
	return t.trackID
}

// GetScore returns the score of the last matched detection
func (t *Track) GetScore() float32 {
	return t.score
}

// GetLabel returns the class label of the last matched detection
func (t *Track) GetLabel() string {
	return t.label
}

// GetDetectionID returns the ID of the last matched detection
func (t *Track) GetDetectionID() int64 {
	return t.detectionID
}

// GetHits returns the total number of matched frames
func (t *Track) GetHits() int {
	return t.hits
}

// GetHitStreak returns the number of consecutive matched frames
func (t *Track) GetHitStreak() int {
	return t.hitStreak
}

// GetAge returns the number of frames the track has been predicted for
func (t *Track) GetAge() int {
	return t.age
}

// GetTimeSinceUpdate returns the number of frames since the last match
func (t *Track) GetTimeSinceUpdate() int {
	return t.timeSinceUpdate
}

// GetVelocity returns the box centre velocity in pixels per frame
func (t *Track) GetVelocity() (float64, float64) {
	return t.filter.Velocity()
}

// IsReliable reports whether the track was matched this frame and has a
// long enough hit streak and age to be used downstream
func (t *Track) IsReliable(minHits, minAge int) bool {
	return t.state != Retired &&
		t.timeSinceUpdate < 1 &&
		t.hitStreak > minHits &&
		t.age > minAge
}

// Predict advances the track one frame.  A track that missed the previous
// frame loses its hit streak.
func (t *Track) Predict() {

	t.rect = t.filter.Predict()
	t.age++

	if t.timeSinceUpdate > 0 {
		t.hitStreak = 0
	}

	t.timeSinceUpdate++
}

// Update corrects the track with a matched detection
func (t *Track) Update(obj Object, minHits int) error {

	if err := t.filter.Update(obj.Rect); err != nil {
		return fmt.Errorf("error updating track %d: %w", t.trackID, err)
	}

	t.rect = t.filter.Rect()
	t.timeSinceUpdate = 0
	t.hits++
	t.hitStreak++
	t.score = obj.Prob
	t.label = obj.Label
	t.detectionID = obj.ID

	if t.state == Tentative && t.hitStreak > minHits {
		t.state = Confirmed
	}

	return nil
}

// MarkAsRetired marks the track as retired
func (t *Track) MarkAsRetired() {
	t.state = Retired
}

// valid reports whether the filter state is usable
func (t *Track) valid() bool {
	return t.filter.Valid()
}
