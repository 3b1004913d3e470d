package service

import (
	"sync"
)

// Pool is a simple pool of session slots, it bounds the number of sessions
// served at once
type Pool struct {
	// pool of free slots
	slots chan int
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with slots numbered 0 to size-1
func NewPool(size int) *Pool {

	p := &Pool{
		slots: make(chan int, size),
		size:  size,
	}

	for i := 0; i < size; i++ {
		p.Return(i)
	}

	return p
}

// TryGet takes a free slot from the pool without blocking.  The boolean is
// false when every slot is in use or the pool is closed.
func (p *Pool) TryGet() (int, bool) {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return -1, false
	}

	select {
	case slot := <-p.slots:
		return slot, true
	default:
		return -1, false
	}
}

// Return a slot to the pool
func (p *Pool) Return(slot int) {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	select {
	case p.slots <- slot:
	default:
		// pool is full
	}
}

// Free returns the number of unused slots
func (p *Pool) Free() int {
	return len(p.slots)
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return p.size
}

// Close the pool, later TryGet calls fail
func (p *Pool) Close() {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.slots)
}
