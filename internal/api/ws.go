package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"world-monitor/internal/logging"
)

const maxWSConnections = 100

// AlertHub fans fired alerts out to connected websocket clients.
type AlertHub struct {
	connections map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
	upgrader    websocket.Upgrader
}

func NewAlertHub(logger *logging.Logger) *AlertHub {
	return &AlertHub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Upgrade promotes an HTTP request to a websocket and registers it. The
// connection is read-drained in the background so close frames are handled.
func (h *AlertHub) Upgrade(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	if len(h.connections) >= maxWSConnections {
		h.mutex.Unlock()
		h.logger.Warnf("Max websocket connections reached, rejecting client")
		_ = conn.Close()
		return nil
	}
	h.connections[conn] = true
	total := len(h.connections)
	h.mutex.Unlock()
	h.logger.Infof("Added websocket connection (total: %d)", total)

	go h.drain(conn)
	return nil
}

func (h *AlertHub) drain(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *AlertHub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.connections, conn)
	_ = conn.Close()
	h.logger.Infof("Removed websocket connection (remaining: %d)", len(h.connections))
}

// Broadcast sends a message to every connected client. Dead connections are
// dropped on write failure.
func (h *AlertHub) Broadcast(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send websocket message: %v", err)
			delete(h.connections, conn)
			_ = conn.Close()
		}
	}
}
