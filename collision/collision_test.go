package collision

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/swdee/go-fcw/config"
	"github.com/swdee/go-fcw/world"
)

func fcwConfig(zone config.Points) config.FCW {
	cfg := config.Defaults().FCW
	cfg.DangerZone = zone
	cfg.SafetyRadius = 30
	cfg.PredictionLength = 5
	cfg.PredictionStep = 0.1
	return cfg
}

var boxZone = config.Points{{5, -2}, {5, 2}, {20, 2}, {20, -2}}

// newGuardWith places a single object at loc moving with velocity v
func newGuardWith(t *testing.T, cfg config.FCW, loc, v r2.Point) (*Guard, *world.Object) {
	t.Helper()

	g, err := NewGuard(cfg, 0.1, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = g.Update(map[int]r3.Vector{1: {X: loc.X, Y: loc.Y}})
	require.NoError(t, err)

	objs := g.Objects()
	require.Len(t, objs, 1)

	objs[0].SetVelocity(v)

	return g, objs[0]
}

func TestPolygonContains(t *testing.T) {

	poly := NewPolygon(boxZone)

	tests := []struct {
		name string
		p    r2.Point
		want bool
	}{
		{"centre", r2.Point{X: 10, Y: 0}, true},
		{"near edge", r2.Point{X: 5, Y: 0}, true},
		{"corner", r2.Point{X: 20, Y: 2}, true},
		{"before", r2.Point{X: 4.99, Y: 0}, false},
		{"beside", r2.Point{X: 10, Y: 2.5}, false},
		{"behind", r2.Point{X: 25, Y: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poly.Contains(tt.p))
		})
	}
}

func TestPolygonIntersectsPath(t *testing.T) {

	poly := NewPolygon(boxZone)

	// crosses without any vertex inside
	assert.True(t, poly.IntersectsPath([]r2.Point{{X: 10, Y: -5}, {X: 10, Y: 5}}))
	// passes beside the zone
	assert.False(t, poly.IntersectsPath([]r2.Point{{X: 0, Y: 3}, {X: 30, Y: 3}}))
	// single point inside
	assert.True(t, poly.IntersectsPath([]r2.Point{{X: 6, Y: 1}}))
	assert.False(t, poly.IntersectsPath(nil))
}

func TestPolygonSimple(t *testing.T) {

	assert.True(t, NewPolygon(boxZone).Simple())
	assert.True(t, NewPolygon(config.Points{{0, 0}, {1, 0}, {0, 1}}).Simple())

	// bow tie
	assert.False(t, NewPolygon(config.Points{{0, 0}, {1, 1}, {1, 0}, {0, 1}}).Simple())
	// collinear
	assert.False(t, NewPolygon(config.Points{{0, 0}, {1, 0}, {2, 0}}).Simple())
	// repeated vertex
	assert.False(t, NewPolygon(config.Points{{0, 0}, {0, 0}, {1, 0}, {0, 1}}).Simple())
	assert.False(t, NewPolygon(config.Points{{0, 0}, {1, 0}}).Simple())
}

func TestPolygonDistance(t *testing.T) {

	poly := NewPolygon(config.Points{{0, 0}, {2, 0}, {2, 2}, {0, 2}})

	assert.Equal(t, 0.0, poly.Distance(r2.Point{X: 1, Y: 1}))
	assert.InDelta(t, 3, poly.Distance(r2.Point{X: 5, Y: 1}), 1e-9)
	assert.InDelta(t, math.Sqrt2, poly.Distance(r2.Point{X: 3, Y: 3}), 1e-9)
}

func TestFootprint(t *testing.T) {

	box := Footprint(4, 1.8, 0)
	assert.Len(t, box, 4)
	assert.InDelta(t, 7.2, math.Abs(box.Area()), 1e-9)

	fp := Footprint(4, 1.8, 0.5)

	assert.Greater(t, len(fp), 4)
	assert.Equal(t, 0.0, fp.Distance(r2.Point{}))
	assert.InDelta(t, 7.5, fp.Distance(r2.Point{X: 10}), 0.01)
	assert.InDelta(t, 1.4, fp.Distance(r2.Point{Y: 2.8}), 0.01)

	// rounded corner around (2, 0.9)
	assert.InDelta(t, math.Hypot(1, 1.1)-0.5, fp.Distance(r2.Point{X: 3, Y: 2}), 0.01)
}

func TestNewGuardErrors(t *testing.T) {

	_, err := NewGuard(fcwConfig(config.Points{{0, 0}, {1, 1}}), 0.1, nil)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, err = NewGuard(fcwConfig(config.Points{{0, 0}, {1, 1}, {1, 0}, {0, 1}}), 0.1, nil)
	assert.True(t, errors.Is(err, ErrDegenerateZone))

	_, err = NewGuard(fcwConfig(config.Points{{0, 0}, {1, 0}, {2, 0}}), 0.1, nil)
	assert.True(t, errors.Is(err, ErrDegenerateZone))

	cfg := fcwConfig(boxZone)
	cfg.SafetyRadius = 0
	_, err = NewGuard(cfg, 0.1, nil)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	cfg = fcwConfig(boxZone)
	cfg.PredictionStep = -1
	_, err = NewGuard(cfg, 0.1, nil)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, err = NewGuard(fcwConfig(boxZone), 0, nil)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestTimeToCollisionZoneEntry(t *testing.T) {

	g, obj := newGuardWith(t, fcwConfig(boxZone), r2.Point{X: 25}, r2.Point{X: -5})

	// the path reaches the far side of the zone, x=20, after 1s
	ttc, ok := g.TimeToCollision(obj)
	require.True(t, ok)
	assert.InDelta(t, 1.0, ttc, 0.1)

	dangerous := g.DangerousObjects()
	require.Len(t, dangerous, 1)
	assert.Equal(t, 1, dangerous[0].ID())

	st := g.LabelObjects()[1]
	assert.True(t, st.CrossesDangerZone)
	assert.False(t, st.IsInDangerZone)
	require.NotNil(t, st.TimeToCollision)
	assert.InDelta(t, 1.0, *st.TimeToCollision, 0.1)
	assert.Equal(t, RiskDanger, st.Risk)
	assert.Len(t, st.Path, 51)
}

func TestTimeToCollisionNearEdge(t *testing.T) {

	zone := config.Points{{0, -2}, {0, 2}, {5, 2}, {5, -2}}

	g, obj := newGuardWith(t, fcwConfig(zone), r2.Point{X: 25}, r2.Point{X: -5})

	ttc, ok := g.TimeToCollision(obj)
	require.True(t, ok)
	assert.InDelta(t, 4.0, ttc, 0.1)
	assert.True(t, g.IsDangerous(obj))
}

func TestSafetyRadiusGating(t *testing.T) {

	cfg := fcwConfig(boxZone)
	cfg.SafetyRadius = 20

	g, obj := newGuardWith(t, cfg, r2.Point{X: 25}, r2.Point{X: -5})

	_, ok := g.TimeToCollision(obj)
	assert.True(t, ok)
	assert.Empty(t, g.DangerousObjects())

	st := g.LabelObjects()[1]
	assert.True(t, st.CrossesDangerZone)
	assert.Equal(t, RiskCaution, st.Risk)
}

func TestClearPath(t *testing.T) {

	g, obj := newGuardWith(t, fcwConfig(boxZone), r2.Point{X: 10, Y: 5}, r2.Point{X: -5})

	_, ok := g.TimeToCollision(obj)
	assert.False(t, ok)
	assert.Empty(t, g.DangerousObjects())

	st := g.LabelObjects()[1]
	assert.Nil(t, st.TimeToCollision)
	assert.False(t, st.CrossesDangerZone)
	assert.Equal(t, RiskNone, st.Risk)
}

func TestObjectInsideZone(t *testing.T) {

	g, _ := newGuardWith(t, fcwConfig(boxZone), r2.Point{X: 10}, r2.Point{})

	st := g.LabelObjects()[1]

	assert.True(t, st.IsInDangerZone)
	require.NotNil(t, st.TimeToCollision)
	assert.Equal(t, 0.0, *st.TimeToCollision)
	assert.Equal(t, RiskWarning, st.Risk)
	assert.InDelta(t, 7.5, st.Distance, 0.01)
	assert.Len(t, g.DangerousObjects(), 1)
}

func TestGuardDropsObjects(t *testing.T) {

	g, _ := newGuardWith(t, fcwConfig(boxZone), r2.Point{X: 10}, r2.Point{})

	changes, err := g.Update(nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, changes.Dropped)
	assert.Empty(t, g.LabelObjects())
	assert.Empty(t, g.DangerousObjects())
}

func TestObjectStatusJSON(t *testing.T) {

	st := ObjectStatus{
		ID:       3,
		Location: XY{1, 2},
		Path:     []XY{{1, 2}},
		Risk:     RiskCaution,
	}

	b, err := json.Marshal(st)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Nil(t, m["time_to_collision"])
	assert.Contains(t, m, "time_to_collision")
	assert.Equal(t, "caution", m["risk"])
	assert.Equal(t, []interface{}{1.0, 2.0}, m["location"])

	var back ObjectStatus
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, RiskCaution, back.Risk)
}
