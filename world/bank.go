package world

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Changes lists the identities touched by one reconciliation, each sorted
// ascending
type Changes struct {
	Created []int
	Updated []int
	Dropped []int
}

// Bank owns the world objects keyed by identity
type Bank struct {
	params  Params
	objects map[int]*Object
	trail   *Trail
	logger  *zap.Logger
}

// NewBank returns an empty bank
func NewBank(params Params, logger *zap.Logger) *Bank {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bank{
		params:  params,
		objects: make(map[int]*Object),
		trail:   NewTrail(params.TrailLength),
		logger:  logger,
	}
}

// Reconcile synchronises the bank with the reference points of the current
// frame.  Identities new to the bank are created at their point, identities
// no longer present are dropped and the rest are predicted one step and
// corrected with their point.
func (b *Bank) Reconcile(points map[int]r3.Vector) (Changes, error) {

	tracked := lo.Keys(b.objects)
	observed := lo.Keys(points)

	dropped, created := lo.Difference(tracked, observed)
	updated := lo.Intersect(tracked, observed)

	sort.Ints(created)
	sort.Ints(updated)
	sort.Ints(dropped)

	for _, id := range dropped {
		delete(b.objects, id)
		b.trail.Remove(id)
		b.logger.Debug("world object dropped", zap.Int("id", id))
	}

	for _, id := range updated {

		obj := b.objects[id]
		obj.Predict()

		if err := obj.Update(toPlane(points[id])); err != nil {
			return Changes{}, err
		}

		b.trail.Add(id, obj.Location())
	}

	for _, id := range created {

		obj, err := NewObject(id, toPlane(points[id]), b.params)

		if err != nil {
			return Changes{}, fmt.Errorf("error creating world object %d: %w", id, err)
		}

		b.objects[id] = obj
		b.trail.Add(id, obj.Location())

		b.logger.Debug("world object created",
			zap.Int("id", id),
			zap.Float64("x", obj.Location().X),
			zap.Float64("y", obj.Location().Y),
		)
	}

	return Changes{Created: created, Updated: updated, Dropped: dropped}, nil
}

// Get returns the object with the given identity
func (b *Bank) Get(id int) (*Object, bool) {
	obj, ok := b.objects[id]
	return obj, ok
}

// Objects returns all objects ordered by identity
func (b *Bank) Objects() []*Object {

	ids := lo.Keys(b.objects)
	sort.Ints(ids)

	out := make([]*Object, len(ids))

	for i, id := range ids {
		out[i] = b.objects[id]
	}

	return out
}

// Len returns the number of tracked objects
func (b *Bank) Len() int {
	return len(b.objects)
}

// History returns the past filtered locations of an object, oldest first
func (b *Bank) History(id int) []r2.Point {
	return b.trail.GetPoints(id)
}

// Reset drops all objects
func (b *Bank) Reset() {
	b.objects = make(map[int]*Object)
	b.trail.Reset()
}

func toPlane(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}
