package service

import (
	"context"
	"sync"

	fcw "github.com/swdee/go-fcw"
)

// FrameQueue is a bounded FIFO of frames.  When full the oldest frame is
// discarded so producers never block on a slow pipeline.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []fcw.Frame
	size    int
	dropped int
	// signal is notified when a frame is pushed onto an empty queue
	signal chan struct{}
}

// NewFrameQueue returns a queue holding at most size frames
func NewFrameQueue(size int) *FrameQueue {

	if size < 1 {
		size = 1
	}

	return &FrameQueue{
		frames: make([]fcw.Frame, 0, size),
		size:   size,
		signal: make(chan struct{}, 1),
	}
}

// Push adds a frame and reports whether an older frame was discarded to
// make room
func (q *FrameQueue) Push(frame fcw.Frame) bool {

	q.mu.Lock()

	discarded := false

	if len(q.frames) >= q.size {
		copy(q.frames, q.frames[1:])
		q.frames = q.frames[:len(q.frames)-1]
		q.dropped++
		discarded = true
	}

	q.frames = append(q.frames, frame)

	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
		// a wake up is already pending
	}

	return discarded
}

// Pop removes the oldest frame, blocking until one is available or the
// context is done
func (q *FrameQueue) Pop(ctx context.Context) (fcw.Frame, error) {

	for {
		if frame, ok := q.TryPop(); ok {
			return frame, nil
		}

		select {
		case <-ctx.Done():
			return fcw.Frame{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// TryPop removes the oldest frame without blocking
func (q *FrameQueue) TryPop() (fcw.Frame, bool) {

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return fcw.Frame{}, false
	}

	frame := q.frames[0]
	copy(q.frames, q.frames[1:])
	q.frames[len(q.frames)-1] = fcw.Frame{}
	q.frames = q.frames[:len(q.frames)-1]

	return frame, true
}

// Len returns the number of queued frames
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Dropped returns the number of frames discarded since creation
func (q *FrameQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
