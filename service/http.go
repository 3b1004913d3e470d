package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	fcw "github.com/swdee/go-fcw"
)

const (
	// maxBodyBytes limits request bodies
	maxBodyBytes = 8 << 20
	// subscriberBuffer is the number of results a WebSocket client may lag
	// behind before results are skipped
	subscriberBuffer = 16
	writeWait        = 5 * time.Second
	pingPeriod       = 30 * time.Second
)

// Server exposes a Registry over HTTP and WebSocket
type Server struct {
	reg      *Registry
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer returns the HTTP adapter of a registry
func NewServer(reg *Registry, logger *zap.Logger) *Server {

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		reg:    reg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// origins are enforced by the CORS layer
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeMux returns the routes of the service
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /sessions", s.listSessions)
	mux.HandleFunc("POST /sessions", s.register)
	mux.HandleFunc("GET /sessions/{id}", s.sessionStats)
	mux.HandleFunc("DELETE /sessions/{id}", s.unregister)
	mux.HandleFunc("POST /sessions/{id}/frames", s.submitFrames)
	mux.HandleFunc("GET /sessions/{id}/results", s.listResults)
	mux.HandleFunc("GET /sessions/{id}/results/latest", s.latestResult)
	mux.HandleFunc("PUT /sessions/{id}/config", s.reconfigure)
	mux.HandleFunc("GET /sessions/{id}/ws", s.streamResults)
	return mux
}

// Handler returns the routes wrapped for browser clients
func (s *Server) Handler() http.Handler {
	return cors.AllowAll().Handler(s.ServeMux())
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("error writing response", zap.Error(err))
	}
}

// writeError maps registry errors to HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {

	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrTooManySessions), errors.Is(err, ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidRequest):
		status = http.StatusBadRequest
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return false
	}

	return true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {

	sess, err := s.reg.Get(r.PathValue("id"))

	if err != nil {
		s.writeError(w, err)
		return nil, false
	}

	return sess, true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"sessions":      len(s.reg.Sessions()),
		"free_sessions": s.reg.pool.Free(),
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {

	sessions := s.reg.Sessions()
	out := make([]Stats, len(sessions))

	for i, sess := range sessions {
		out[i] = sess.Stats()
	}

	s.writeJSON(w, http.StatusOK, out)
}

// registerResponse is returned for a new session
type registerResponse struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {

	var req RegisterRequest

	// an empty body registers with the base configuration
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	sess, err := s.reg.Register(req)

	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, registerResponse{ID: sess.ID(), Slot: sess.Slot()})
}

func (s *Server) sessionStats(w http.ResponseWriter, r *http.Request) {

	sess, ok := s.session(w, r)

	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) unregister(w http.ResponseWriter, r *http.Request) {

	if err := s.reg.Unregister(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// submitResponse reports the queue state after frames were submitted
type submitResponse struct {
	Queued    int `json:"queued"`
	Discarded int `json:"discarded"`
}

func (s *Server) submitFrames(w http.ResponseWriter, r *http.Request) {

	sess, ok := s.session(w, r)

	if !ok {
		return
	}

	// accept a single frame or a batch
	var raw json.RawMessage

	if !s.decode(w, r, &raw) {
		return
	}

	var frames []fcw.Frame

	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &frames); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed frames: " + err.Error()})
			return
		}
	} else {
		var frame fcw.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed frame: " + err.Error()})
			return
		}
		frames = append(frames, frame)
	}

	recv := time.Now().UnixNano()
	discarded := 0

	for _, frame := range frames {

		if frame.RecvTimestamp == 0 {
			frame.RecvTimestamp = recv
		}

		if sess.Submit(frame) {
			discarded++
		}
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{Queued: len(frames), Discarded: discarded})
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {

	sess, ok := s.session(w, r)

	if !ok {
		return
	}

	since := int64(math.MinInt64)

	if v := r.URL.Query().Get("since"); v != "" {

		ts, err := strconv.ParseInt(v, 10, 64)

		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since must be an integer timestamp"})
			return
		}

		since = ts
	}

	s.writeJSON(w, http.StatusOK, sess.Results(since))
}

func (s *Server) latestResult(w http.ResponseWriter, r *http.Request) {

	sess, ok := s.session(w, r)

	if !ok {
		return
	}

	res, ok := sess.Latest()

	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no results yet"})
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) reconfigure(w http.ResponseWriter, r *http.Request) {

	var params map[string]interface{}

	if !s.decode(w, r, &params) {
		return
	}

	cfg, err := s.reg.Reconfigure(r.PathValue("id"), params)

	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, cfg)
}

// streamResults upgrades to a WebSocket and sends every new result of the
// session as a JSON text message
func (s *Server) streamResults(w http.ResponseWriter, r *http.Request) {

	sess, ok := s.session(w, r)

	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)

	if err != nil {
		// the upgrader has already replied
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	defer conn.Close()

	results, unsubscribe := sess.Subscribe(subscriberBuffer)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the read loop notices the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := s.logger.With(zap.String("session", sess.ID()))
	logger.Info("websocket client connected")

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("websocket client disconnected")
			return

		case res, ok := <-results:

			if !ok {
				// session closed
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteJSON(res); err != nil {
				logger.Warn("error writing result", zap.Error(err))
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
