package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// event is the message pushed to websocket subscribers.
type event struct {
	Event string `json:"event"`
}

const writeWait = 5 * time.Second

// hub tracks websocket subscribers and fans events out to them. Clients
// only listen; inbound messages are drained and dropped.
type hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			// The serve API is same-machine tooling; cross-origin pages
			// are allowed to subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *hub) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket subscribed", "clients", n)

	// Reader loop: drain until the client goes away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// broadcastInvalidated tells every subscriber the analysis is stale and
// should be re-fetched. Slow or broken clients are dropped.
func (h *hub) broadcastInvalidated() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event{Event: "invalidated"}); err != nil {
			h.drop(conn)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
