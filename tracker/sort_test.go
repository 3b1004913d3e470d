package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swdee/go-fcw/config"
)

func newTestTracker(t *testing.T, mutate func(*config.Tracker)) *Tracker {
	t.Helper()

	cfg := config.Defaults().Tracker
	if mutate != nil {
		mutate(&cfg)
	}

	tr, err := New(cfg, WithLogger(zaptest.NewLogger(t)), WithIDGenerator(NewIDGenerator()))
	require.NoError(t, err)

	return tr
}

func box(x, y, w, h float64) Object {
	return NewObject(NewRect(x, y, x+w, y+h), "car", 0.9, 0)
}

var jitter = []float64{0, 1, -1, 0.5, -0.5, 1.5, -1.5}

// TestTrackContinuity follows a box moving smoothly with small jitter and
// expects one identity for the whole sequence
func TestTrackContinuity(t *testing.T) {

	for _, solver := range []string{"lapjv", "munkres"} {
		t.Run(solver, func(t *testing.T) {

			tr := newTestTracker(t, func(c *config.Tracker) { c.Assignment = solver })

			ids := make(map[int]bool)

			for frame := 1; frame <= 40; frame++ {

				j := jitter[frame%len(jitter)]
				x := 100 + 5*float64(frame) + j

				tracks, err := tr.Update([]Object{box(x, 200+j, 50, 100)})
				require.NoError(t, err)
				require.Len(t, tracks, 1, "frame %d", frame)

				ids[tracks[0].GetTrackID()] = true

				reliable := tr.Reliable()

				// hit streak and age both exceed 3 from the fifth frame
				if frame < 5 {
					assert.Empty(t, reliable, "frame %d", frame)
					assert.Equal(t, Tentative, tracks[0].GetTrackState())
				} else {
					require.Len(t, reliable, 1, "frame %d", frame)
					assert.Equal(t, Confirmed, reliable[0].GetTrackState())
				}
			}

			assert.Len(t, ids, 1)

			vx, _ := tr.Tracks()[0].GetVelocity()
			assert.InDelta(t, 5, vx, 0.5)
			assert.Equal(t, 40, tr.FrameCount())
		})
	}
}

// TestTwoObjects keeps separate identities for separated objects
func TestTwoObjects(t *testing.T) {

	tr := newTestTracker(t, nil)

	var first []int

	for frame := 1; frame <= 10; frame++ {

		dx := 3 * float64(frame)

		// detection order is swapped every other frame
		objs := []Object{box(50+dx, 100, 40, 80), box(400-dx, 100, 40, 80)}
		if frame%2 == 0 {
			objs[0], objs[1] = objs[1], objs[0]
		}

		tracks, err := tr.Update(objs)
		require.NoError(t, err)
		require.Len(t, tracks, 2)

		ids := []int{tracks[0].GetTrackID(), tracks[1].GetTrackID()}
		if first == nil {
			first = ids
		}

		assert.ElementsMatch(t, first, ids)
	}
}

// TestTrackRetirement checks a track is removed exactly on the
// (max_age+1)th frame without a match
func TestTrackRetirement(t *testing.T) {

	const maxAge = 2

	tr := newTestTracker(t, func(c *config.Tracker) { c.MaxAge = maxAge })

	for frame := 1; frame <= 3; frame++ {
		_, err := tr.Update([]Object{box(100, 100, 50, 50)})
		require.NoError(t, err)
	}

	track := tr.Tracks()[0]

	for missed := 1; missed <= maxAge+1; missed++ {

		tracks, err := tr.Update(nil)
		require.NoError(t, err)

		if missed <= maxAge {
			require.Len(t, tracks, 1, "missed %d", missed)
			assert.Equal(t, missed, tracks[0].GetTimeSinceUpdate())
			assert.Empty(t, tr.Reliable())

			// the streak is cleared by the prediction after a miss
			if missed > 1 {
				assert.Zero(t, tracks[0].GetHitStreak())
			}
		} else {
			assert.Empty(t, tracks, "missed %d", missed)
		}
	}

	assert.Equal(t, Retired, track.GetTrackState())
}

// TestHitStreakReset checks a single missed frame restarts the streak
func TestHitStreakReset(t *testing.T) {

	tr := newTestTracker(t, func(c *config.Tracker) { c.MaxAge = 3 })

	for frame := 1; frame <= 6; frame++ {
		_, err := tr.Update([]Object{box(100, 100, 50, 50)})
		require.NoError(t, err)
	}

	require.Len(t, tr.Reliable(), 1)

	_, err := tr.Update(nil)
	require.NoError(t, err)

	tracks, err := tr.Update([]Object{box(100, 100, 50, 50)})
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	assert.Equal(t, 1, tracks[0].GetHitStreak())
	assert.Equal(t, 6, tracks[0].GetHits())
	assert.Empty(t, tr.Reliable())
}

// TestEmptyFrames runs the tracker on frames without detections
func TestEmptyFrames(t *testing.T) {

	tr := newTestTracker(t, nil)

	for frame := 0; frame < 100; frame++ {
		tracks, err := tr.Update(nil)
		require.NoError(t, err)
		assert.Empty(t, tracks)
	}

	assert.Empty(t, tr.Reliable())
}

// TestNewTracksFromDetections creates one tentative track per detection
// when nothing is tracked yet
func TestNewTracksFromDetections(t *testing.T) {

	tr := newTestTracker(t, nil)

	tracks, err := tr.Update([]Object{
		box(0, 0, 10, 10),
		box(100, 0, 10, 10),
		box(200, 0, 10, 10),
	})
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	for i, track := range tracks {
		assert.Equal(t, i+1, track.GetTrackID())
		assert.Equal(t, Tentative, track.GetTrackState())
		assert.Zero(t, track.GetHitStreak())
		assert.Zero(t, track.GetAge())
	}
}

// TestIDsAreNotReused checks IDs keep increasing after a reset and across
// trackers sharing a generator
func TestIDsAreNotReused(t *testing.T) {

	ids := NewIDGenerator()

	a, err := New(config.Defaults().Tracker, WithIDGenerator(ids))
	require.NoError(t, err)

	b, err := New(config.Defaults().Tracker, WithIDGenerator(ids))
	require.NoError(t, err)

	ta, err := a.Update([]Object{box(0, 0, 10, 10)})
	require.NoError(t, err)

	a.Reset()
	assert.Empty(t, a.Tracks())
	assert.Zero(t, a.FrameCount())

	ta2, err := a.Update([]Object{box(0, 0, 10, 10)})
	require.NoError(t, err)

	tb, err := b.Update([]Object{box(0, 0, 10, 10)})
	require.NoError(t, err)

	assert.Equal(t, 1, ta[0].GetTrackID())
	assert.Equal(t, 2, ta2[0].GetTrackID())
	assert.Equal(t, 3, tb[0].GetTrackID())
}

func TestNewInvalidConfig(t *testing.T) {

	cfg := config.Defaults().Tracker
	cfg.IoUThreshold = 1.5

	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
