package postprocess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-fcw/config"
)

func TestFilter(t *testing.T) {

	cfg := config.Defaults().Detector
	cfg.FrameMargin = 5

	f := NewFilter(cfg, 640, 480)

	box := BoxRect{Left: 100, Top: 100, Right: 200, Bottom: 300}

	tests := []struct {
		name string
		det  DetectResult
		keep bool
	}{
		{"car", DetectResult{Label: "car", Box: box, Probability: 0.9}, true},
		{"low score", DetectResult{Label: "car", Box: box, Probability: 0.2}, false},
		{"unknown class", DetectResult{Label: "chair", Box: box, Probability: 0.9}, false},
		{"touching border", DetectResult{Label: "person", Box: BoxRect{Left: 2, Top: 100, Right: 50, Bottom: 200}, Probability: 0.9}, false},
		{"inverted box", DetectResult{Label: "car", Box: BoxRect{Left: 200, Top: 100, Right: 100, Bottom: 300}, Probability: 0.9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keep, f.Keep(tt.det))
		})
	}

	dets := []DetectResult{tests[0].det, tests[1].det, tests[2].det}
	assert.Len(t, f.Apply(dets), 1)
}

func TestFilterAllClasses(t *testing.T) {

	f := NewFilter(config.Detector{}, 0, 0)

	assert.True(t, f.Keep(DetectResult{
		Label: "chair",
		Box:   BoxRect{Left: 0, Top: 0, Right: 10, Bottom: 10},
	}))
}

func TestReferencePoint(t *testing.T) {
	b := BoxRect{Left: 10, Top: 20, Right: 30, Bottom: 60}
	p := b.ReferencePoint()
	assert.Equal(t, 20.0, p.X)
	assert.Equal(t, 60.0, p.Y)
}

func TestLoadLabels(t *testing.T) {

	path := filepath.Join(t.TempDir(), "coco.txt")
	require.NoError(t, os.WriteFile(path, []byte("person\nbicycle\n car \n\n"), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car"}, labels)

	dets := []DetectResult{{Class: 2}, {Class: 7}, {Class: 0, Label: "truck"}}
	ResolveLabels(dets, labels)
	assert.Equal(t, "car", dets[0].Label)
	assert.Equal(t, "", dets[1].Label)
	assert.Equal(t, "truck", dets[2].Label)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDetectResultJSON(t *testing.T) {

	var det DetectResult

	err := json.Unmarshal([]byte(`{"bbox": [10, 20, 30, 60], "score": 0.8, "label": "car"}`), &det)
	require.NoError(t, err)

	assert.Equal(t, BoxRect{Left: 10, Top: 20, Right: 30, Bottom: 60}, det.Box)
	assert.Equal(t, "car", det.Label)
	assert.InDelta(t, 0.8, det.Probability, 1e-6)

	b, err := json.Marshal(det.Box)
	require.NoError(t, err)
	assert.JSONEq(t, `[10, 20, 30, 60]`, string(b))

	err = json.Unmarshal([]byte(`{"bbox": [1, 2, 3]}`), &det)
	assert.Error(t, err)
}
