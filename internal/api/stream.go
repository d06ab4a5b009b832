// Live step-record streaming over websocket, consumed by the replay
// and visualization frontends.
package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/asi-chain/internal/engine"
)

const maxStreamConns = 4

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser origins are filtered by the CORS layer; the stream itself
	// is gated by the relay key.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans step records out to connected stream clients.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]bool)}
}

func (h *hub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= maxStreamConns {
		return false
	}
	h.conns[conn] = true
	return true
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// broadcast sends a record to every client, dropping clients whose
// writes fail.
func (h *hub) broadcast(rec engine.StepRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(rec); err != nil {
			slog.Debug("stream client dropped", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Broadcast publishes a step record to all stream clients. Safe to call
// from the simulation loop.
func (s *Server) Broadcast(rec engine.StepRecord) {
	if s.hub != nil {
		s.hub.broadcast(rec)
	}
}

// handleStream upgrades to a websocket and keeps the connection until
// the client goes away. Requires the relay bearer token.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key set)", http.StatusForbidden)
		return
	}
	if !checkBearer(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}

	if !s.hub.add(conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many stream connections"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	// Drain control frames; the stream is write-only from our side.
	go func() {
		defer func() {
			s.hub.remove(conn)
			conn.Close()
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
