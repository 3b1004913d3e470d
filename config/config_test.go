package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const sessionYAML = `
tracker:
  max_age: 2
  iou_threshold: 0.25
fcw:
  danger_zone:
    a: [5, -2]
    b: [5, 2]
    c: [20, 2]
    d: [20, -2]
  safety_radius: 25
fps: 25
`

const cameraYAML = `
image_size: [1280, 720]
K:
  - [600, 0, 640]
  - [0, 600, 360]
  - [0, 0, 1]
D: [0.1, 0.01, 0, 0]
horizon: [640, 360, 1000, 360]
location: [0, 0, 1.5]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {

	cfg, err := Load(writeFile(t, "session.yaml", sessionYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Tracker.MaxAge)
	assert.Equal(t, 3, cfg.Tracker.MinHits, "defaults kept for unset keys")
	assert.InDelta(t, 0.25, cfg.Tracker.IoUThreshold, 1e-12)
	assert.InDelta(t, 25.0, cfg.FPS, 1e-12)
	assert.InDelta(t, 0.04, cfg.DT(), 1e-12)

	want := Points{{5, -2}, {5, 2}, {20, 2}, {20, -2}}
	if diff := cmp.Diff(want, cfg.FCW.DangerZone); diff != "" {
		t.Errorf("danger zone mismatch (-want +got):\n%s", diff)
	}

	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeFile(t, "session.yaml", "fcw:\n  vehcile_length: 3\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadCamera(t *testing.T) {

	cam, err := LoadCamera(writeFile(t, "camera.yaml", cameraYAML))
	require.NoError(t, err)

	assert.Equal(t, [2]int{1280, 720}, cam.ImageSize)
	assert.Equal(t, [2]int{1280, 720}, cam.RectifiedSize, "rectified size defaults to image size")
	assert.Equal(t, Points{{640, 360}, {1000, 360}}, cam.Horizon)
	assert.Equal(t, "x", cam.ViewDirection)
	assert.Equal(t, []float64{0, 0, 1.5}, cam.Location)
	assert.NoError(t, cam.Validate())
}

func TestDecodeCameraHorizonPoints(t *testing.T) {

	cam, err := DecodeCamera(map[string]interface{}{
		"image_size":     []interface{}{640, 480},
		"horizon_points": []interface{}{[]interface{}{1.0, 2.0}, []interface{}{3.0, 4.0}, []interface{}{5.0, 6.0}},
	})
	require.NoError(t, err)

	assert.Equal(t, Points{{1, 2}, {3, 4}, {5, 6}}, cam.Horizon)
}

func TestFromFlat(t *testing.T) {

	nested, err := FromFlat(map[string]interface{}{
		"fcw.safety_radius":   20.0,
		"fcw.prediction_step": 0.2,
		"tracker":             map[string]interface{}{"max_age": 4},
		"tracker.min_hits":    1,
		"fps":                 10,
	})
	require.NoError(t, err)

	want := map[string]interface{}{
		"fcw":     map[string]interface{}{"safety_radius": 20.0, "prediction_step": 0.2},
		"tracker": map[string]interface{}{"max_age": 4, "min_hits": 1},
		"fps":     10,
	}

	if diff := cmp.Diff(want, nested); diff != "" {
		t.Errorf("nested mismatch (-want +got):\n%s", diff)
	}

	_, err = FromFlat(map[string]interface{}{"fcw": 1, "fcw.safety_radius": 2})
	assert.Error(t, err)
}

func TestMergeFlatParameters(t *testing.T) {

	base := Defaults()
	base.FCW.DangerZone = Points{{0, 0}, {1, 0}, {1, 1}}

	cfg, err := Merge(base, map[string]interface{}{
		"fcw.safety_radius": "12.5",
		"tracker.max_age":   3,
	})
	require.NoError(t, err)

	assert.InDelta(t, 12.5, cfg.FCW.SafetyRadius, 1e-12)
	assert.Equal(t, 3, cfg.Tracker.MaxAge)
	assert.Equal(t, base.FCW.DangerZone, cfg.FCW.DangerZone)
	assert.InDelta(t, 30.0, base.FCW.SafetyRadius, 1e-12, "base is not modified")
}

func TestValidateReportsAllProblems(t *testing.T) {

	cfg := Defaults()
	cfg.FCW.DangerZone = Points{{0, 0}, {1, 1}}
	cfg.FCW.SafetyRadius = 0
	cfg.FCW.PredictionStep = -1
	cfg.Tracker.Assignment = "greedy"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Len(t, multierr.Errors(err), 4)
}

func TestValidatePredictionSamples(t *testing.T) {

	cfg := Defaults()
	cfg.FCW.DangerZone = Points{{5, -2}, {5, 2}, {20, 2}, {20, -2}}

	cfg.FCW.PredictionLength = 1000
	cfg.FCW.PredictionStep = 0.1
	require.NoError(t, cfg.Validate())

	cfg.FCW.PredictionLength = 1e7
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "path samples")

	cfg.FCW.PredictionLength = math.Inf(1)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.FCW.PredictionLength = math.NaN()
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestValidateCamera(t *testing.T) {

	cam := CameraDefaults()
	cam.ViewDirection = "y"
	cam.Location = []float64{0, 0, 0}

	errs := multierr.Errors(cam.Validate())

	// image size, rectified size, K, D, horizon, view direction, height
	assert.Len(t, errs, 7)
}
