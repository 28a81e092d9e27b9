package daemon

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"equipqr/internal/logging"
	"equipqr/internal/offline"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts non-browser clients (no Origin header) and pages served
// from the daemon's own host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return parsed.Host == r.Host
}

// handleStream upgrades to a websocket and pushes offline.Update messages: a
// "started" snapshot first, then every change the manager publishes.
func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMethodNotAllowed(w)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("stream upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()
	logger := logging.WithContext(r.Context(), s.logger)

	updates, unsubscribe := s.manager().Subscribe()
	defer unsubscribe()

	status, err := s.manager().Status(r.Context())
	if err != nil {
		logger.Warn("stream status read failed", logging.Error(err))
		return
	}
	if err := writeStreamJSON(conn, offline.Update{Reason: offline.ReasonStarted, Status: status}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	shutdown := s.shutdownSignal()

	for {
		select {
		case <-closed:
			return
		case <-shutdown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeStreamJSON(conn, update); err != nil {
				logger.Debug("stream write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeStreamJSON(conn *websocket.Conn, update offline.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(update)
}
