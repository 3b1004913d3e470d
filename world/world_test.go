package world

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTransition(t *testing.T) {

	F := Transition(0.5)

	assert.Equal(t, 1.0, F.At(stateX, stateX))
	assert.Equal(t, 0.5, F.At(stateX, stateVX))
	assert.Equal(t, 0.125, F.At(stateX, stateAX))
	assert.Equal(t, 0.5, F.At(stateVY, stateAY))

	// axes are independent
	assert.Equal(t, 0.0, F.At(stateX, stateY))
	assert.Equal(t, 0.0, F.At(stateY, stateVX))
}

func TestNewObjectSeeded(t *testing.T) {

	obj, err := NewObject(7, r2.Point{X: 12, Y: -3}, DefaultParams(0.1))
	require.NoError(t, err)

	assert.Equal(t, 7, obj.ID())
	assert.Equal(t, r2.Point{X: 12, Y: -3}, obj.Location())
	assert.Equal(t, r2.Point{}, obj.Velocity())
	assert.Equal(t, r2.Point{}, obj.Acceleration())
	assert.Equal(t, 0.0, obj.Speed())
	assert.InDelta(t, math.Hypot(12, 3), obj.Distance(), 1e-9)
}

func TestPathSampling(t *testing.T) {

	obj, err := NewObject(1, r2.Point{X: 25}, DefaultParams(0.1))
	require.NoError(t, err)

	obj.SetVelocity(r2.Point{X: -5})

	path := obj.FuturePath(5, 0.1)
	require.Len(t, path, 51)

	for i, p := range path {
		assert.InDelta(t, 25-0.5*float64(i), p.X, 1e-6, "point %d", i)
		assert.InDelta(t, 0, p.Y, 1e-9)
	}

	// length not a multiple of step rounds the sample count up
	assert.Len(t, obj.FuturePath(1, 0.3), 5)
	assert.Len(t, obj.FuturePath(1, 0.1), 11)

	// degenerate step yields the current location only
	assert.Equal(t, []r2.Point{{X: 25}}, obj.FuturePath(1, 0))
}

func TestPathAcceleration(t *testing.T) {

	state := []float64{0, 0, 2, 0, 1, 0}
	path := Path(state, 1, 0.5)

	require.Len(t, path, 3)
	assert.InDelta(t, 0.25, path[1].X, 1e-9)
	assert.InDelta(t, 1.0, path[2].X, 1e-9)
	assert.InDelta(t, 0.5, path[1].Y, 1e-9)
	assert.InDelta(t, 1.0, path[2].Y, 1e-9)
}

func TestObjectVelocityConverges(t *testing.T) {

	dt := 0.1

	obj, err := NewObject(1, r2.Point{X: 30, Y: 2}, DefaultParams(dt))
	require.NoError(t, err)

	for k := 1; k <= 100; k++ {
		obj.Predict()
		require.NoError(t, obj.Update(r2.Point{X: 30 - 5*dt*float64(k), Y: 2}))
	}

	assert.Equal(t, 100, obj.Age())
	assert.Equal(t, 0, obj.SinceObserved())

	v := obj.Velocity()
	assert.InDelta(t, -5, v.X, 0.2)
	assert.InDelta(t, 0, v.Y, 1e-6)
	assert.InDelta(t, -20, obj.Location().X, 0.5)
}

func TestBankReconcile(t *testing.T) {

	bank := NewBank(DefaultParams(0.1), zaptest.NewLogger(t))

	changes, err := bank.Reconcile(map[int]r3.Vector{
		1: {X: 10, Y: 0},
		2: {X: 20, Y: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, changes.Created)
	assert.Empty(t, changes.Updated)
	assert.Empty(t, changes.Dropped)
	assert.Equal(t, 2, bank.Len())

	changes, err = bank.Reconcile(map[int]r3.Vector{
		2: {X: 19.5, Y: 1},
		3: {X: 8, Y: -2},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{3}, changes.Created)
	assert.Equal(t, []int{2}, changes.Updated)
	assert.Equal(t, []int{1}, changes.Dropped)

	_, ok := bank.Get(1)
	assert.False(t, ok)

	obj, ok := bank.Get(2)
	require.True(t, ok)
	assert.Equal(t, 1, obj.Age())
	assert.Less(t, obj.Location().X, 20.0)

	objs := bank.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, 2, objs[0].ID())
	assert.Equal(t, 3, objs[1].ID())

	assert.Len(t, bank.History(2), 2)
	assert.Len(t, bank.History(3), 1)
	assert.Nil(t, bank.History(1))

	// an empty frame drops everything
	changes, err = bank.Reconcile(nil)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, changes.Dropped)
	assert.Equal(t, 0, bank.Len())
}

func TestBankReset(t *testing.T) {

	bank := NewBank(DefaultParams(0.1), nil)

	_, err := bank.Reconcile(map[int]r3.Vector{4: {X: 1}})
	require.NoError(t, err)

	bank.Reset()

	assert.Equal(t, 0, bank.Len())
	assert.Nil(t, bank.History(4))
}

func TestTrailBounded(t *testing.T) {

	trail := NewTrail(3)

	for i := 0; i < 5; i++ {
		trail.Add(1, r2.Point{X: float64(i)})
	}

	assert.Equal(t, []r2.Point{{X: 2}, {X: 3}, {X: 4}}, trail.GetPoints(1))

	// returned slice is a copy
	pts := trail.GetPoints(1)
	pts[0].X = 100
	assert.Equal(t, 2.0, trail.GetPoints(1)[0].X)

	trail.Remove(1)
	assert.Nil(t, trail.GetPoints(1))

	disabled := NewTrail(0)
	disabled.Add(1, r2.Point{X: 1})
	assert.Nil(t, disabled.GetPoints(1))
}
