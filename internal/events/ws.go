package events

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WSHandler upgrades an observer connection and streams hub events as
// JSON frames until the client disconnects.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler bound to the hub.
func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	// Reader goroutine: observers send nothing; we only need to notice
	// the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("observer connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-done:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Debug("observer write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				slog.Debug("observer write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}
