package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"equipqr/internal/api"
	"equipqr/internal/config"
	"equipqr/internal/logging"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
)

// maxRequestBytes bounds request bodies; payload size itself is enforced by
// the manager's policy.
const maxRequestBytes = 4 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:   strings.TrimSpace(cfg.Daemon.APIBind),
		token:  strings.TrimSpace(cfg.Daemon.APIToken),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.route(s.handleStatus))
	mux.HandleFunc("/api/queue", s.route(s.handleQueue))
	mux.HandleFunc("/api/queue/", s.route(s.handleQueueItem))
	mux.HandleFunc("/api/stream", s.route(s.handleStream))
	return mux
}

// route applies authentication and tags the request with a correlation id.
func (s *apiServer) route(next http.HandlerFunc) http.HandlerFunc {
	return authMiddleware(s.token, func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("daemon api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	listener := s.listener
	server := s.server
	done := s.done
	s.listener = nil
	s.server = nil
	s.done = nil
	s.mu.Unlock()
	if listener == nil {
		return
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	close(done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = listener.Close()
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) shutdownSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

func (s *apiServer) manager() *offline.Manager {
	return s.daemon.local.Manager
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMethodNotAllowed(w)
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		statuses, err := parseStatuses(r.URL.Query())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		items, err := s.daemon.local.Store.List(r.Context(), s.manager().Scope(), statuses...)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: api.FromQueueItems(items)})
	case http.MethodPost:
		var req api.EnqueueRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		item, err := s.manager().Enqueue(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.QueueItemResponse{Item: api.FromQueueItem(item)})
	case http.MethodDelete:
		var (
			removed int64
			err     error
		)
		switch status := strings.TrimSpace(r.URL.Query().Get("status")); status {
		case "":
			removed, err = s.manager().Clear(r.Context())
		case string(queue.StatusFailed):
			removed, err = s.manager().ClearFailed(r.Context())
		default:
			err = fmt.Errorf("%w: only failed items can be cleared by status, got %q", queue.ErrInvalidPayload, status)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.RemoveResponse{Removed: removed})
	default:
		s.writeMethodNotAllowed(w)
	}
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	switch rest {
	case "sync":
		s.handleSync(w, r)
		return
	case "retry":
		s.handleRetry(w, r)
		return
	}

	id, err := url.PathUnescape(rest)
	if err != nil || strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		s.writeError(w, r, fmt.Errorf("%w: queue item %q", queue.ErrNotFound, rest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := s.manager().Item(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: api.FromQueueItem(item)})
	case http.MethodDelete:
		if err := s.manager().Dismiss(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.RemoveResponse{Removed: 1})
	default:
		s.writeMethodNotAllowed(w)
	}
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeMethodNotAllowed(w)
		return
	}
	result, err := s.manager().SyncNow(r.Context())
	s.writeSyncResult(w, r, result, err)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeMethodNotAllowed(w)
		return
	}
	var req api.RetryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.manager().RetryFailed(r.Context(), req.IDs...)
	if err == nil && !s.manager().Online() {
		err = queue.ErrNetworkUnavailable
	}
	s.writeSyncResult(w, r, result, err)
}

// writeSyncResult reports a skipped or halted pass as a normal response with
// Offline set; the queue is intact and the caller only needs to know why.
func (s *apiServer) writeSyncResult(w http.ResponseWriter, r *http.Request, result offline.SyncResult, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.SyncResponse{Result: result})
	case errors.Is(err, queue.ErrNetworkUnavailable):
		s.writeJSON(w, http.StatusOK, api.SyncResponse{Result: result, Offline: true})
	default:
		s.writeError(w, r, err)
	}
}

func parseStatuses(values url.Values) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values["status"] {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			status, ok := queue.ParseStatus(trimmed)
			if !ok || status == queue.StatusSynced {
				return nil, fmt.Errorf("%w: unknown status %q", queue.ErrInvalidPayload, trimmed)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func decodeBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode request: %v", queue.ErrInvalidPayload, err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := api.NewErrorResponse(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.WithContext(r.Context(), s.logger).Error("api request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, body)
}

func (s *apiServer) writeMethodNotAllowed(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed"})
}
