// Package collision decides which world objects threaten the ego vehicle.
// A Guard owns the world object bank of a session, predicts each object's
// path and tests it against a static danger zone polygon.
package collision

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/swdee/go-fcw/config"
	"github.com/swdee/go-fcw/world"
)

// ErrDegenerateZone is returned for a danger zone that is not a simple
// polygon with a non zero area
var ErrDegenerateZone = errors.New("degenerate danger zone")

// Guard classifies world objects against the danger zone
type Guard struct {
	zone      Polygon
	footprint Polygon

	safetyRadius     float64
	predictionLength float64
	predictionStep   float64

	bank   *world.Bank
	logger *zap.Logger
}

// NewGuard validates the configuration and returns a guard with an empty
// world object bank.  dt is the time between frames in seconds.
func NewGuard(cfg config.FCW, dt float64, logger *zap.Logger) (*Guard, error) {

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !(dt > 0) {
		return nil, fmt.Errorf("%w: frame time must be positive, got %v", config.ErrInvalid, dt)
	}

	zone := NewPolygon(cfg.DangerZone)

	if !zone.Simple() {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateZone, cfg.DangerZone)
	}

	params := world.DefaultParams(dt)
	params.TrailLength = cfg.TrailLength

	return &Guard{
		zone:             zone,
		footprint:        Footprint(cfg.VehicleLength, cfg.VehicleWidth, cfg.VehicleMargin),
		safetyRadius:     cfg.SafetyRadius,
		predictionLength: cfg.PredictionLength,
		predictionStep:   cfg.PredictionStep,
		bank:             world.NewBank(params, logger),
		logger:           logger,
	}, nil
}

// Zone returns the danger zone polygon
func (g *Guard) Zone() Polygon {
	return g.zone
}

// Footprint returns the inflated vehicle outline
func (g *Guard) Footprint() Polygon {
	return g.footprint
}

// Update synchronises the world objects with the reference points of the
// current frame
func (g *Guard) Update(points map[int]r3.Vector) (world.Changes, error) {
	return g.bank.Reconcile(points)
}

// Reset drops all world objects
func (g *Guard) Reset() {
	g.bank.Reset()
}

// Objects returns the tracked world objects ordered by identity
func (g *Guard) Objects() []*world.Object {
	return g.bank.Objects()
}

// Path returns the predicted future path of an object
func (g *Guard) Path(obj *world.Object) []r2.Point {
	return obj.FuturePath(g.predictionLength, g.predictionStep)
}

// IsDangerous reports whether an object is within the safety radius and its
// predicted path touches the danger zone
func (g *Guard) IsDangerous(obj *world.Object) bool {
	return obj.Distance() < g.safetyRadius && g.zone.IntersectsPath(g.Path(obj))
}

// DangerousObjects returns the objects for which IsDangerous holds, ordered
// by identity
func (g *Guard) DangerousObjects() []*world.Object {

	var out []*world.Object

	for _, obj := range g.bank.Objects() {
		if g.IsDangerous(obj) {
			out = append(out, obj)
		}
	}

	return out
}

// TimeToCollision returns the time until the predicted path of an object
// first has a sample inside the danger zone.  The second return value is
// false when no sample is inside.
func (g *Guard) TimeToCollision(obj *world.Object) (float64, bool) {
	return g.timeToCollision(g.Path(obj))
}

func (g *Guard) timeToCollision(path []r2.Point) (float64, bool) {

	idx, ok := g.zone.FirstInside(path)

	if !ok {
		return 0, false
	}

	return float64(idx) * g.predictionStep, true
}

// Distance returns the distance from a ground point to the vehicle footprint
func (g *Guard) Distance(p r2.Point) float64 {
	return g.footprint.Distance(p)
}

// LabelObjects returns the status of every tracked object keyed by identity
func (g *Guard) LabelObjects() map[int]ObjectStatus {

	out := make(map[int]ObjectStatus, g.bank.Len())

	for _, obj := range g.bank.Objects() {

		loc := obj.Location()
		path := g.Path(obj)

		st := ObjectStatus{
			ID:                obj.ID(),
			Distance:          g.Distance(loc),
			Location:          toXY(loc),
			Velocity:          toXY(obj.Velocity()),
			Speed:             obj.Speed(),
			Path:              toXYs(path),
			IsInDangerZone:    g.zone.Contains(loc),
			CrossesDangerZone: g.zone.IntersectsPath(path),
			History:           toXYs(g.bank.History(obj.ID())),
		}

		if ttc, ok := g.timeToCollision(path); ok {
			st.TimeToCollision = &ttc
		}

		st.Risk = classify(st, obj.Distance() < g.safetyRadius)

		if st.Risk >= RiskWarning {
			g.logger.Debug("object at risk",
				zap.Int("id", st.ID),
				zap.Stringer("risk", st.Risk),
				zap.Float64("distance", st.Distance),
				zap.Float64p("ttc", st.TimeToCollision),
			)
		}

		out[st.ID] = st
	}

	return out
}
