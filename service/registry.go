// Package service hosts collision warning sessions for many cameras.  Each
// session owns its own pipeline, frame queue and result store and is driven
// by a dedicated worker goroutine, the HTTP adapter in this package is the
// only transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	fcw "github.com/swdee/go-fcw"
	"github.com/swdee/go-fcw/camera"
	"github.com/swdee/go-fcw/config"
	"github.com/swdee/go-fcw/tracker"
)

var (
	// ErrSessionNotFound is returned for an unknown session ID
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when every session slot is in use
	ErrTooManySessions = errors.New("not enough resources")
	// ErrInvalidRequest wraps configuration and calibration errors of a
	// register or reconfigure request
	ErrInvalidRequest = errors.New("invalid session request")
	// ErrClosed is returned after the registry has been closed
	ErrClosed = errors.New("registry closed")
)

// RegisterRequest is the body of a session registration
type RegisterRequest struct {
	// Config overrides the registry base configuration, keys may be nested
	// maps or dotted paths
	Config map[string]interface{} `json:"config"`
	// CameraConfig is the camera calibration
	CameraConfig map[string]interface{} `json:"camera_config"`
	// FPS overrides the configured frame rate when positive
	FPS float64 `json:"fps"`
}

// Registry owns the live sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	pool   *Pool
	base   config.Config
	ids    *tracker.IDGenerator
	labels []string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithBaseConfig sets the configuration sessions start from
func WithBaseConfig(cfg config.Config) RegistryOption {
	return func(r *Registry) {
		r.base = cfg
	}
}

// WithIDGenerator sets the track ID source shared by all sessions
func WithIDGenerator(ids *tracker.IDGenerator) RegistryOption {
	return func(r *Registry) {
		r.ids = ids
	}
}

// WithLabels sets the class names used by every session
func WithLabels(labels []string) RegistryOption {
	return func(r *Registry) {
		r.labels = labels
	}
}

// NewRegistry returns an empty registry.  The number of concurrent
// sessions is bounded by the base configuration service.max_sessions.
func NewRegistry(opts ...RegistryOption) *Registry {

	r := &Registry{
		sessions: make(map[string]*Session),
		base:     config.Defaults(),
		ids:      tracker.NewIDGenerator(),
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	r.pool = NewPool(r.base.Service.MaxSessions)
	r.ctx, r.cancel = context.WithCancel(context.Background())

	return r
}

// build decodes a request into the session configuration and pipeline
func (r *Registry) build(base config.Config, overrides map[string]interface{},
	camCfg config.Camera, fps float64, logger *zap.Logger) (config.Config, *fcw.Pipeline, error) {

	cfg, err := config.Merge(base, overrides)

	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if fps > 0 {
		cfg.FPS = fps
	}

	// report configuration and calibration problems together
	if err := multierr.Combine(cfg.Validate(), camCfg.Validate()); err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	cam, err := camera.New(camCfg)

	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	p, err := fcw.NewPipeline(cfg, cam,
		fcw.WithLogger(logger),
		fcw.WithIDGenerator(r.ids),
		fcw.WithLabels(r.labels),
	)

	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return cfg, p, nil
}

// Register creates and starts a session
func (r *Registry) Register(req RegisterRequest) (*Session, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	slot, ok := r.pool.TryGet()

	if !ok {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	logger := r.logger.With(zap.String("session", id))

	camCfg, err := config.DecodeCamera(req.CameraConfig)

	if err != nil {
		r.pool.Return(slot)
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	cfg, p, err := r.build(r.base, req.Config, camCfg, req.FPS, logger)

	if err != nil {
		r.pool.Return(slot)
		return nil, err
	}

	s := newSession(id, slot, cfg, camCfg, p, logger)
	s.start(r.ctx)

	r.sessions[id] = s

	logger.Info("client registered", zap.Int("slot", slot), zap.Float64("fps", cfg.FPS))

	return s, nil
}

// Get returns a session by ID
func (r *Registry) Get(id string) (*Session, error) {

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	return s, nil
}

// Sessions returns the live sessions ordered by creation time
func (r *Registry) Sessions() []*Session {

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))

	for _, s := range r.sessions {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].created.Before(out[j].created)
	})

	return out
}

// Unregister stops a session and frees its slot.  The worker finishes the
// frame in flight before the session is gone.
func (r *Registry) Unregister(id string) error {

	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.close()
	r.pool.Return(s.slot)

	s.logger.Info("client unregistered")

	return nil
}

// Reconfigure applies parameter overrides to a session.  The session
// restarts with a fresh pipeline, so all tracking state is dropped.  An
// invalid request leaves the running session untouched.
func (r *Registry) Reconfigure(id string, params map[string]interface{}) (config.Config, error) {

	s, err := r.Get(id)

	if err != nil {
		return config.Config{}, err
	}

	s.mu.RLock()
	base := s.cfg
	camCfg := s.camCfg
	s.mu.RUnlock()

	cfg, p, err := r.build(base, params, camCfg, 0, s.logger)

	if err != nil {
		return config.Config{}, err
	}

	s.replace(cfg, camCfg, p)

	s.logger.Info("session reconfigured", zap.Any("params", params))

	return cfg, nil
}

// Close stops every session
func (r *Registry) Close() {

	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return
	}

	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)

	r.mu.Unlock()

	r.cancel()

	for _, s := range sessions {
		s.close()
	}

	r.pool.Close()
}
