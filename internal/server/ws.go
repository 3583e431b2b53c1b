package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The interface is same-host for the GUI; no cross-origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans published snapshots out to websocket subscribers. Slow consumers
// are dropped rather than allowed to block the publisher.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan Snapshot
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]chan Snapshot)}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ch := make(chan Snapshot, 4)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("signal feed subscriber connected")

	go h.writeLoop(conn, ch)

	// Reads only service close/ping; subscribers never send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *hub) writeLoop(conn *websocket.Conn, ch chan Snapshot) {
	for snap := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *hub) broadcast(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		select {
		case ch <- snap:
		default:
			// Subscriber is not keeping up.
			delete(h.conns, conn)
			close(ch)
			conn.Close()
		}
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(ch)
	}
	conn.Close()
}
