package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gametrack/internal/api"
	"gametrack/internal/config"
	"gametrack/internal/enrich"
	"gametrack/internal/logging"
	"gametrack/internal/runner"
)

const (
	maxStartBody     = 8 << 20
	defaultLogLimit  = 200
	defaultResults   = 100
	eventsKeepalive  = 15 * time.Second
	shutdownDeadline = 5 * time.Second
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server

	// baseCtx parents every request so streams end when the server stops.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is empty")
	}
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.baseCtx, srv.cancelBase = context.WithCancel(context.Background())
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken)),
		BaseContext:       func(net.Listener) context.Context { return srv.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(token, func(w http.ResponseWriter) {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
		}))
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/session", s.handleSession)
		r.Post("/api/session", s.handleStart)
		r.Post("/api/session/{action}", s.handleControl)
		r.Get("/api/session/events", s.handleEvents)
		r.Get("/api/results", s.handleResults)
		r.Get("/api/logs", s.handleLogs)
		if s.daemon.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.daemon.metrics.Handler())
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// listen binds the configured address.
func (s *apiServer) listen() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// serve blocks until the server is shut down.
func (s *apiServer) serve() error {
	if s.listener == nil {
		return errors.New("api server not listening")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	s.cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown", logging.Error(err))
		_ = s.server.Close()
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		DatabasePath:    status.DatabasePath,
		LockFilePath:    status.LockFilePath,
		BridgeAvailable: status.BridgeAvailable,
		Phase:           status.Session.Phase,
		SessionID:       status.Session.SessionID,
		Counts:          api.StatusCounts(status.Session),
	})
}

func (s *apiServer) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.runner.Snapshot())
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.StartRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStartBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	snap, err := s.daemon.runner.Start(req.Rows, runner.StartOptions{Region: req.Region})
	switch {
	case errors.Is(err, runner.ErrNoRows):
		s.writeError(w, http.StatusBadRequest, "no rows submitted")
		return
	case errors.Is(err, runner.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, "daemon is shutting down")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Info("enrichment session submitted",
		logging.String(logging.FieldSessionID, snap.SessionID),
		logging.Int("rows", snap.TotalRows),
		logging.String("region", snap.Region),
	)
	s.writeJSON(w, http.StatusAccepted, snap)
}

func (s *apiServer) handleControl(w http.ResponseWriter, r *http.Request) {
	var snap enrich.Snapshot
	switch chi.URLParam(r, "action") {
	case "pause":
		snap = s.daemon.runner.Pause()
	case "resume":
		snap = s.daemon.runner.Resume()
	case "cancel":
		snap = s.daemon.runner.Cancel()
	default:
		s.writeError(w, http.StatusNotFound, "unknown session action")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	updates, cancel := s.daemon.runner.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(eventsKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				s.log().Error("failed to encode snapshot", logging.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *apiServer) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := defaultResults
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	items, err := s.daemon.store.ListResolved(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ResultsResponse{Items: api.FromResolvedSlice(items)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	component := strings.TrimSpace(query.Get("component"))
	sessionID := strings.TrimSpace(query.Get("session"))

	var (
		raw  []logging.LogEvent
		next uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		if follow {
			_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		}
		var err error
		raw, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	events := api.FromLogEvents(raw)
	filtered := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if sessionID != "" && evt.SessionID != sessionID {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
