package fcw

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swdee/go-fcw/camera"
	"github.com/swdee/go-fcw/collision"
	"github.com/swdee/go-fcw/config"
	"github.com/swdee/go-fcw/postprocess"
	"github.com/swdee/go-fcw/reference"
	"github.com/swdee/go-fcw/tracker"
)

// Stage processes one frame into a result.  Transports hold a Stage and
// never see the tracking state behind it.
type Stage interface {
	Process(frame Frame) (*Result, error)
}

// Pipeline is the tracking and collision warning state of one camera
// stream.  It is not safe for concurrent use, frames must be processed in
// capture order.
type Pipeline struct {
	cfg     config.Config
	cam     *camera.Camera
	filter  *postprocess.Filter
	tracker *tracker.Tracker
	guard   *collision.Guard
	labels  []string
	logger  *zap.Logger
	now     func() time.Time
}

type options struct {
	logger *zap.Logger
	ids    *tracker.IDGenerator
	labels []string
	now    func() time.Time
}

// Option configures a Pipeline
type Option func(*options)

// WithLogger sets the logger shared by all stages
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIDGenerator sets the source of track IDs
func WithIDGenerator(ids *tracker.IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithLabels sets the class names used to label detections that only carry
// a class index
func WithLabels(labels []string) Option {
	return func(o *options) {
		o.labels = labels
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewPipeline validates the configuration and builds the stages of a
// session.  A configuration error is returned before any state is created.
func NewPipeline(cfg config.Config, cam *camera.Camera, opts ...Option) (*Pipeline, error) {

	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	if cam == nil {
		return nil, fmt.Errorf("%w: camera is required", config.ErrInvalid)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	trackerOpts := []tracker.Option{tracker.WithLogger(o.logger.Named("tracker"))}

	if o.ids != nil {
		trackerOpts = append(trackerOpts, tracker.WithIDGenerator(o.ids))
	}

	trk, err := tracker.New(cfg.Tracker, trackerOpts...)

	if err != nil {
		return nil, fmt.Errorf("error creating tracker: %w", err)
	}

	guard, err := collision.NewGuard(cfg.FCW, cfg.DT(), o.logger.Named("guard"))

	if err != nil {
		return nil, fmt.Errorf("error creating collision guard: %w", err)
	}

	w, h := cam.RectifiedSize()

	return &Pipeline{
		cfg:     cfg,
		cam:     cam,
		filter:  postprocess.NewFilter(cfg.Detector, w, h),
		tracker: trk,
		guard:   guard,
		labels:  o.labels,
		logger:  o.logger,
		now:     o.now,
	}, nil
}

// Config returns the configuration the pipeline was built with
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Guard returns the collision guard
func (p *Pipeline) Guard() *collision.Guard {
	return p.guard
}

// Tracker returns the image plane tracker
func (p *Pipeline) Tracker() *tracker.Tracker {
	return p.tracker
}

// Reset clears all tracking state
func (p *Pipeline) Reset() {
	p.tracker.Reset()
	p.guard.Reset()
}

// Process runs one frame through all stages
func (p *Pipeline) Process(frame Frame) (*Result, error) {

	timing := &Timing{
		ProcessStart: p.now(),
	}

	if frame.RecvTimestamp == 0 {
		frame.RecvTimestamp = timing.ProcessStart.UnixNano()
	}

	dets := frame.Detections

	if len(p.labels) > 0 {
		dets = append([]postprocess.DetectResult(nil), dets...)
		postprocess.ResolveLabels(dets, p.labels)
	}

	dets = p.filter.Apply(dets)

	timing.TrackerStart = p.now()

	if _, err := p.tracker.Update(tracker.DetectionsToObjects(dets)); err != nil {
		return nil, fmt.Errorf("error updating tracker: %w", err)
	}

	timing.TrackerEnd = p.now()

	reliable := p.tracker.Reliable()
	points := reference.Resolve(reliable, p.cam, camera.Rectified)

	if len(points) < len(reliable) {
		p.logger.Debug("reference points omitted",
			zap.Int("reliable", len(reliable)),
			zap.Int("resolved", len(points)),
		)
	}

	timing.ResolveEnd = p.now()

	if _, err := p.guard.Update(points); err != nil {
		return nil, fmt.Errorf("error updating world objects: %w", err)
	}

	res := &Result{
		Timestamp:           frame.Timestamp,
		RecvTimestamp:       frame.RecvTimestamp,
		Objects:             p.guard.LabelObjects(),
		DangerousDetections: make(map[int]DangerousDetection),
		Timing:              timing,
	}

	boxes := make(map[int]tracker.Rect, len(reliable))

	for _, track := range reliable {
		boxes[track.GetTrackID()] = track.GetRect()
	}

	for _, obj := range p.guard.DangerousObjects() {

		rect, ok := boxes[obj.ID()]

		if !ok {
			continue
		}

		res.DangerousDetections[obj.ID()] = DangerousDetection{
			BBox:     rect.Tlbr(),
			Distance: res.Objects[obj.ID()].Distance,
		}
	}

	for _, st := range res.Objects {
		if st.TimeToCollision == nil {
			continue
		}
		if res.MinTimeToCollision == nil || *st.TimeToCollision < *res.MinTimeToCollision {
			ttc := *st.TimeToCollision
			res.MinTimeToCollision = &ttc
		}
	}

	timing.GuardEnd = p.now()
	timing.ProcessEnd = timing.GuardEnd
	res.SendTimestamp = timing.ProcessEnd.UnixNano()

	if len(res.DangerousDetections) > 0 {
		p.logger.Info("collision warning",
			zap.Int64("timestamp", frame.Timestamp),
			zap.Int("objects", len(res.DangerousDetections)),
			zap.Float64p("min_ttc", res.MinTimeToCollision),
		)
	}

	return res, nil
}
