package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	fcw "github.com/swdee/go-fcw"
	"github.com/swdee/go-fcw/config"
)

// Session is one registered camera stream.  A single worker goroutine
// drains the frame queue through the session's pipeline so frames are
// processed strictly in arrival order.
type Session struct {
	id      string
	slot    int
	created time.Time

	// mu guards the pipeline and its configuration, the worker holds a read
	// lock for the duration of a frame
	mu     sync.RWMutex
	cfg    config.Config
	camCfg config.Camera
	stage  fcw.Stage

	queue *FrameQueue
	store *ResultStore

	subsMu  sync.Mutex
	subs    map[int]chan *fcw.Result
	nextSub int

	processed atomic.Int64
	failed    atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
	logger *zap.Logger
}

// Stats are the counters of a session
type Stats struct {
	ID        string  `json:"id"`
	Slot      int     `json:"slot"`
	Queued    int     `json:"queued"`
	Dropped   int     `json:"dropped"`
	Processed int64   `json:"processed"`
	Failed    int64   `json:"failed"`
	Stored    int     `json:"stored"`
	FPS       float64 `json:"fps"`
}

func newSession(id string, slot int, cfg config.Config, camCfg config.Camera,
	stage fcw.Stage, logger *zap.Logger) *Session {

	return &Session{
		id:      id,
		slot:    slot,
		created: time.Now(),
		cfg:     cfg,
		camCfg:  camCfg,
		stage:   stage,
		queue:   NewFrameQueue(cfg.Service.QueueSize),
		store:   NewResultStore(cfg.Service.ResultBuffer),
		subs:    make(map[int]chan *fcw.Result),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// start runs the worker until the parent context is done or the session is
// closed
func (s *Session) start(parent context.Context) {

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {

	defer close(s.done)

	s.logger.Info("session worker started")

	for {
		frame, err := s.queue.Pop(ctx)

		if err != nil {
			s.logger.Info("session worker stopped")
			return
		}

		s.mu.RLock()
		res, err := s.stage.Process(frame)
		s.mu.RUnlock()

		if err != nil {
			s.failed.Add(1)
			s.logger.Error("error processing frame",
				zap.Int64("timestamp", frame.Timestamp),
				zap.Error(err),
			)
			continue
		}

		s.processed.Add(1)
		s.store.Add(res)
		s.publish(res)
	}
}

// publish fans a result out to subscribers.  Subscribers that are not
// keeping up miss the result.
func (s *Session) publish(res *fcw.Result) {

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- res:
		default:
		}
	}
}

// ID returns the session identity
func (s *Session) ID() string {
	return s.id
}

// Slot returns the pool slot held by the session
func (s *Session) Slot() int {
	return s.slot
}

// Config returns the active session configuration
func (s *Session) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Submit queues a frame for processing and reports whether an older frame
// was discarded
func (s *Session) Submit(frame fcw.Frame) bool {

	if frame.RecvTimestamp == 0 {
		frame.RecvTimestamp = time.Now().UnixNano()
	}

	discarded := s.queue.Push(frame)

	if discarded {
		s.logger.Debug("frame queue full, discarded oldest frame")
	}

	return discarded
}

// Latest returns the newest result
func (s *Session) Latest() (*fcw.Result, bool) {
	return s.store.Latest()
}

// Results returns the stored results with an image timestamp after ts
func (s *Session) Results(since int64) []*fcw.Result {
	return s.store.Since(since)
}

// Subscribe returns a channel receiving every new result and a function
// that ends the subscription.  The channel is closed when the subscription
// ends or the session is closed.
func (s *Session) Subscribe(buffer int) (<-chan *fcw.Result, func()) {

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan *fcw.Result, buffer)
	s.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()

			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Stats returns the session counters
func (s *Session) Stats() Stats {
	return Stats{
		ID:        s.id,
		Slot:      s.slot,
		Queued:    s.queue.Len(),
		Dropped:   s.queue.Dropped(),
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Stored:    s.store.Len(),
		FPS:       s.Config().FPS,
	}
}

// replace swaps in a new pipeline after the in-flight frame completes.  The
// stored results of the old pipeline are kept.
func (s *Session) replace(cfg config.Config, camCfg config.Camera, stage fcw.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.camCfg = camCfg
	s.stage = stage
}

// close stops the worker, waits for it to exit and ends all subscriptions
func (s *Session) close() {

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
