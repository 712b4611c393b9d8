package server

// ABOUTME: Websocket log streaming for preview containers. Pushes log
// ABOUTME: tails on an interval until the container leaves the registry's
// ABOUTME: active set or the client disconnects.

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		return true // local developer tool, same-host clients
	},
}

const (
	logStreamInterval = 2 * time.Second
	logStreamTail     = 50
)

// wsLogFrame is one streamed message to the client.
type wsLogFrame struct {
	Type   string `json:"type"` // "logs" or "closed"
	Logs   string `json:"logs,omitempty"`
	Status string `json:"status,omitempty"`
}

func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	containerID := chi.URLParam(r, "containerID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // best-effort close

	// Detect client disconnect; incoming frames are otherwise ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(logStreamInterval)
	defer ticker.Stop()

	for {
		logs := s.manager.Logs(r.Context(), containerID, logStreamTail)
		if err := conn.WriteJSON(wsLogFrame{Type: "logs", Logs: logs}); err != nil {
			s.logger.Debug("websocket write", "error", err)
			return
		}

		rec, ok := s.registry.Get(containerID)
		if !ok || rec.Status.Terminal() {
			status := "unknown"
			if ok {
				status = string(rec.Status)
			}
			conn.WriteJSON(wsLogFrame{Type: "closed", Status: status}) //nolint:errcheck // best-effort final frame
			return
		}

		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
