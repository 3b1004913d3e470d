package service

import (
	"sync"

	fcw "github.com/swdee/go-fcw"
)

// ResultStore keeps the most recent results of a session, the oldest
// result is evicted when the store is full
type ResultStore struct {
	mu      sync.RWMutex
	results []*fcw.Result
	size    int
}

// NewResultStore returns a store holding at most size results
func NewResultStore(size int) *ResultStore {

	if size < 1 {
		size = 1
	}

	return &ResultStore{
		results: make([]*fcw.Result, 0, size),
		size:    size,
	}
}

// Add stores a result
func (s *ResultStore) Add(res *fcw.Result) {

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results) >= s.size {
		copy(s.results, s.results[1:])
		s.results[len(s.results)-1] = nil
		s.results = s.results[:len(s.results)-1]
	}

	s.results = append(s.results, res)
}

// Latest returns the newest result
func (s *ResultStore) Latest() (*fcw.Result, bool) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		return nil, false
	}

	return s.results[len(s.results)-1], true
}

// Since returns the stored results with an image timestamp after ts, oldest
// first
func (s *ResultStore) Since(ts int64) []*fcw.Result {

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*fcw.Result, 0, len(s.results))

	for _, res := range s.results {
		if res.Timestamp > ts {
			out = append(out, res)
		}
	}

	return out
}

// Len returns the number of stored results
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Clear drops all results
func (s *ResultStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = s.results[:0]
}
