package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/pavadmin/pavadmin/internal/rcon"
	"github.com/pavadmin/pavadmin/internal/state"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "text/json; charset=utf-8"

	defaultStatusEvents = 50
)

// Commander is the subset of rcon.Client the front end needs.
type Commander interface {
	SendCommand(ctx context.Context, text string) (string, error)
	Connected() bool
	State() rcon.State
}

// EventSource supplies recent lifecycle events for /status.
type EventSource interface {
	Recent(n int) []state.Event
}

// Server exposes RCON commands, health, status and metrics over HTTP.
type Server struct {
	rcon    Commander
	events  EventSource
	log     *zap.Logger
	srv     *http.Server
	router  *httprouter.Router
	quit    chan struct{}
	quitted sync.Once
}

// Options configures optional routes.
type Options struct {
	Events      EventSource
	MetricsPath string
	Metrics     http.Handler
}

// NewServer creates a server listening on listen.
func NewServer(listen string, rc Commander, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		rcon:   rc,
		events: opts.Events,
		log:    log.Named("api"),
		router: httprouter.New(),
		quit:   make(chan struct{}),
	}
	s.router.GET("/command", s.handleCommand)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/quit", s.handleQuit)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handler(http.MethodGet, path, opts.Metrics)
	}
	s.srv = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Quit is closed when a client requests POST /quit.
func (s *Server) Quit() <-chan struct{} { return s.quit }

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx2)
}

// StatusForKind maps an RCON error kind to the HTTP status reported to callers.
func StatusForKind(kind rcon.ErrorKind) int {
	switch kind {
	case rcon.None:
		return http.StatusOK
	case rcon.Disconnected:
		return http.StatusServiceUnavailable
	case rcon.ResponseTimeout, rcon.InvalidCommand:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     bool   `json:"error"`
	Status    int    `json:"status"`
	ErrorCode *int   `json:"errorCode,omitempty"`
	Message   string `json:"message"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	if !q.Has("cmd") {
		writeError(w, http.StatusBadRequest, "Bad Parameters")
		return
	}
	reply, err := s.rcon.SendCommand(r.Context(), q.Get("cmd"))
	if err != nil {
		kind := rcon.KindOf(err)
		s.log.Debug("command failed", zap.Stringer("kind", kind))
		writeKindError(w, kind)
		return
	}
	writeText(w, http.StatusOK, reply, contentTypeJSON)
}

type statusBody struct {
	Connected bool          `json:"connected"`
	State     string        `json:"state"`
	Events    []state.Event `json:"events,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body := statusBody{
		Connected: s.rcon.Connected(),
		State:     s.rcon.State().String(),
	}
	if s.events != nil {
		n := defaultStatusEvents
		if v := r.URL.Query().Get("events"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "Bad Parameters")
				return
			}
			n = parsed
		}
		body.Events = s.events.Recent(n)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeText(w, http.StatusOK, "ok", contentTypeText)
}

func (s *Server) handleQuit(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeText(w, http.StatusOK, "ok", contentTypeText)
	s.quitted.Do(func() { close(s.quit) })
}

func writeText(w http.ResponseWriter, status int, body, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error(), contentTypeText)
		return
	}
	writeText(w, status, string(data), contentTypeJSON)
}

// writeError reports a request problem that did not come from the RCON
// session; such bodies carry no errorCode.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: true, Status: status, Message: message})
}

func writeKindError(w http.ResponseWriter, kind rcon.ErrorKind) {
	code := int(kind)
	status := StatusForKind(kind)
	writeJSON(w, status, errorBody{Error: true, Status: status, ErrorCode: &code, Message: kind.String()})
}
