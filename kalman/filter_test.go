package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func scalarModel(q, r float64) Model {
	return Model{
		F: mat.NewDense(1, 1, []float64{1}),
		H: mat.NewDense(1, 1, []float64{1}),
		Q: mat.NewDense(1, 1, []float64{q}),
		R: mat.NewDense(1, 1, []float64{r}),
	}
}

func TestScalarUpdate(t *testing.T) {

	f, err := New(scalarModel(0, 1), []float64{0}, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)

	require.NoError(t, f.Update([]float64{2}))

	// equal prior and measurement variance gives a gain of one half
	assert.InDelta(t, 1.0, f.At(0), 1e-12)
	assert.InDelta(t, 0.5, f.Covariance().At(0, 0), 1e-12)

	f.Predict()
	assert.InDelta(t, 0.5, f.Covariance().At(0, 0), 1e-12)
}

func TestConstantVelocityPredict(t *testing.T) {

	model := Model{
		F: mat.NewDense(2, 2, []float64{1, 1, 0, 1}),
		H: mat.NewDense(1, 2, []float64{1, 0}),
		Q: mat.NewDense(2, 2, nil),
		R: mat.NewDense(1, 1, []float64{1}),
	}

	f, err := New(model, []float64{0, 1}, mat.NewDiagDense(2, []float64{1, 1}))
	require.NoError(t, err)

	f.Predict()

	assert.Equal(t, []float64{1, 1}, f.State())

	expected := mat.NewDense(2, 2, []float64{2, 1, 1, 1})
	assert.True(t, mat.EqualApprox(expected, f.Covariance(), 1e-12))
}

func TestUpdateConvergesOnConstantSignal(t *testing.T) {

	f, err := New(scalarModel(1e-4, 4), []float64{0}, mat.NewDense(1, 1, []float64{100}))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		f.Predict()
		require.NoError(t, f.Update([]float64{7}))
	}

	// the steady state gain is small so the last millimetres are slow
	assert.InDelta(t, 7, f.At(0), 5e-3)
	assert.Less(t, f.Covariance().At(0, 0), 0.5)
	assert.False(t, f.HasNaN())
}

func TestDimensionChecks(t *testing.T) {

	model := scalarModel(0, 1)

	_, err := New(model, []float64{0, 0}, mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrDimension)

	f, err := New(model, []float64{0}, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.ErrorIs(t, f.Update([]float64{1, 2}), ErrDimension)
}

func TestHasNaN(t *testing.T) {

	f, err := New(scalarModel(0, 1), []float64{0}, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)

	f.Set(0, math.NaN())
	assert.True(t, f.HasNaN())
}

func TestDiscreteWhiteNoise(t *testing.T) {

	q, err := DiscreteWhiteNoise(3, 2, 0.5, 2)
	require.NoError(t, err)

	r, c := q.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 6, c)

	// dt=2: dt^4/4=4, dt^3/2=4, dt^2/2=2, dt^2=4, dt=2, scaled by 0.5
	block := []float64{
		2, 2, 1,
		2, 2, 1,
		1, 1, 0.5,
	}

	for b := 0; b < 2; b++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				assert.InDelta(t, block[i*3+j], q.At(b*3+i, b*3+j), 1e-12)
			}
		}
	}

	assert.Zero(t, q.At(0, 3))
	assert.Zero(t, q.At(5, 2))

	_, err = DiscreteWhiteNoise(4, 1, 1, 1)
	assert.ErrorIs(t, err, ErrDimension)
}
