package world

import (
	"sync"

	"github.com/golang/geo/r2"
)

// Trail keeps a bounded history of world locations per object
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of points per object id
	history map[int][]r2.Point
	sync.Mutex
}

// NewTrail returns a new trail history.  Size is the maximum number of
// points kept per object, zero disables the history.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int][]r2.Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int][]r2.Point)
}

// Add appends a location to the history of an object
func (t *Trail) Add(id int, p r2.Point) {

	if t.size <= 0 {
		return
	}

	t.Lock()
	defer t.Unlock()

	points := append(t.history[id], p)

	// check if history is exceeded and drop oldest point
	if len(points) > t.size {
		points = points[len(points)-t.size:]
	}

	t.history[id] = points
}

// Remove forgets the history of an object
func (t *Trail) Remove(id int) {
	t.Lock()
	defer t.Unlock()

	delete(t.history, id)
}

// GetPoints gets a copy of the point history for a specific object id
func (t *Trail) GetPoints(id int) []r2.Point {
	t.Lock()
	defer t.Unlock()

	points, exists := t.history[id]

	if !exists {
		// no history yet
		return nil
	}

	out := make([]r2.Point, len(points))
	copy(out, points)

	return out
}
