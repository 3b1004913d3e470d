package tracker

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// floatsEqual compares slices of float64
func floatsEqual(a, b []float64, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if diff := a[i] - b[i]; diff > epsilon || diff < -epsilon {
			return false
		}
	}
	return true
}

// matricesEqual compare matrices
func matricesEqual(a, b mat.Matrix, epsilon float64) bool {
	r1, c1 := a.Dims()
	r2, c2 := b.Dims()

	if r1 != r2 || c1 != c2 {
		return false
	}

	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			if diff := a.At(i, j) - b.At(i, j); diff > epsilon || diff < -epsilon {
				return false
			}
		}
	}

	return true
}

// TestBoxFilterInitiate checks the initial state and covariance of a new
// box filter
func TestBoxFilterInitiate(t *testing.T) {

	rect := NewRect(100, 200, 150, 300)

	bf, err := NewBoxFilter(rect)
	if err != nil {
		t.Fatalf("NewBoxFilter returned an error: %v", err)
	}

	expectedMean := []float64{125, 250, 5000, 0.5, 0, 0, 0}

	if !floatsEqual(bf.kf.State(), expectedMean, 1e-9) {
		t.Errorf("Initial mean mismatch.\nExpected: %v\nGot: %v", expectedMean, bf.kf.State())
	}

	expectedCov := mat.NewDiagDense(7, []float64{10, 10, 10, 10, 10000, 10000, 10000})

	if !matricesEqual(bf.kf.Covariance(), expectedCov, 1e-9) {
		t.Errorf("Initial covariance mismatch.\nExpected: %v\nGot: %v",
			mat.Formatted(expectedCov), mat.Formatted(bf.kf.Covariance()))
	}

	got := bf.Rect().Tlbr()

	if !floatsEqual(got[:], []float64{100, 200, 150, 300}, 1e-9) {
		t.Errorf("Initial rect mismatch, got %v", got)
	}
}

// TestBoxFilterPredict checks the covariance after one prediction, velocity
// uncertainty flows into the position terms
func TestBoxFilterPredict(t *testing.T) {

	bf, err := NewBoxFilter(NewRect(0, 0, 10, 20))
	if err != nil {
		t.Fatalf("NewBoxFilter returned an error: %v", err)
	}

	rect := bf.Predict()

	// zero initial velocity keeps the box in place
	got := rect.Tlbr()
	if !floatsEqual(got[:], []float64{0, 0, 10, 20}, 1e-9) {
		t.Errorf("Predicted rect mismatch, got %v", got)
	}

	cov := bf.kf.Covariance()

	// P' = FPF' + Q, position variance 10 + 10000 + 1
	if diff := cov.At(0, 0) - 10011; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected cov[0,0] = 10011, got %v", cov.At(0, 0))
	}

	if diff := cov.At(0, 4) - 10000; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected cov[0,4] = 10000, got %v", cov.At(0, 4))
	}

	// aspect ratio has no velocity term
	if diff := cov.At(3, 3) - 11; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected cov[3,3] = 11, got %v", cov.At(3, 3))
	}
}

// TestBoxFilterVelocity checks that a box moving at a constant speed is
// followed and its velocity estimated
func TestBoxFilterVelocity(t *testing.T) {

	bf, err := NewBoxFilter(NewRect(0, 0, 40, 80))
	if err != nil {
		t.Fatalf("NewBoxFilter returned an error: %v", err)
	}

	for i := 1; i <= 30; i++ {
		bf.Predict()

		x := float64(i) * 4
		if err := bf.Update(NewRect(x, 0, x+40, 80)); err != nil {
			t.Fatalf("Update returned an error: %v", err)
		}
	}

	vx, vy := bf.Velocity()

	if diff := vx - 4; diff > 0.05 || diff < -0.05 {
		t.Errorf("Expected vx close to 4, got %v", vx)
	}

	if diff := vy; diff > 0.05 || diff < -0.05 {
		t.Errorf("Expected vy close to 0, got %v", vy)
	}

	if !bf.Valid() {
		t.Errorf("Expected a valid filter state")
	}
}

// TestBoxFilterShrinking checks a box whose area would turn negative has its
// area velocity cleared
func TestBoxFilterShrinking(t *testing.T) {

	bf, err := NewBoxFilter(NewRect(0, 0, 10, 10))
	if err != nil {
		t.Fatalf("NewBoxFilter returned an error: %v", err)
	}

	bf.kf.Set(stateVS, -500)
	bf.Predict()

	if s := bf.kf.At(stateS); s != 100 {
		t.Errorf("Expected area to stay 100, got %v", s)
	}
}
