package tracker

import "sync"

// IDGenerator hands out incrementing track IDs.  A generator may be shared
// by several trackers so IDs stay unique across sessions.
type IDGenerator struct {
	id int
	sync.Mutex
}

// NewIDGenerator returns a generator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental ID
func (g *IDGenerator) GetNext() int {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}

// processIDs is used by trackers not given their own generator so track IDs
// are unique for the lifetime of the process
var processIDs = NewIDGenerator()
