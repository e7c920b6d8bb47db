package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/triage-console/internal/domain"
)

// hub fans session snapshots out to connected dashboard clients. All writes
// are serialized behind wmu; gorilla/websocket supports at most one
// concurrent writer per connection.
type hub struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	wmu    sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// The console is a single-user local tool; the dashboard may be
			// served from any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// serve upgrades the connection, sends the current snapshot, and keeps the
// connection registered until the peer closes it.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, current domain.SessionSnapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	h.wmu.Lock()
	err = conn.WriteJSON(current)
	h.wmu.Unlock()
	if err != nil {
		h.drop(conn)
		return
	}

	// Reader loop exists only to observe the close handshake.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// broadcast pushes a snapshot to every connected client, dropping
// connections that fail to accept the write.
func (h *hub) broadcast(snap domain.SessionSnapshot) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(snap); err != nil {
			h.drop(conn)
		}
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// close terminates all connections during server shutdown.
func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
