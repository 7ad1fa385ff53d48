package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
)

const sendBuffer = 256

type envelope struct {
	userID uuid.UUID // uuid.Nil means everyone
	msg    models.Message
}

// Hub maintains the set of active clients and delivers messages to them.
// Run is the only goroutine that writes to connections.
type Hub struct {
	mu sync.RWMutex
	// Registered clients and the user each one authenticated as (uuid.Nil when anonymous)
	connections map[*websocket.Conn]uuid.UUID

	// Messages waiting to be delivered
	outbox chan envelope

	// Upgrader for HTTP connections to WebSocket
	upgrader websocket.Upgrader

	identify func(r *http.Request) uuid.UUID
	log      logging.Logger
}

// NewHub creates a new hub. identify maps the upgrade request to a user id; it may be nil.
func NewHub(identify func(r *http.Request) uuid.UUID, log logging.Logger) *Hub {
	upgrader := websocket.Upgrader{
		// Allow all origins for WebSocket connections
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	if identify == nil {
		identify = func(*http.Request) uuid.UUID { return uuid.Nil }
	}

	return &Hub{
		connections: make(map[*websocket.Conn]uuid.UUID),
		outbox:      make(chan envelope, sendBuffer),
		upgrader:    upgrader,
		identify:    identify,
		log:         log,
	}
}

// Run delivers queued messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case env := <-h.outbox:
			h.deliver(env)
		}
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	var targets []*websocket.Conn
	for conn, uid := range h.connections {
		if env.userID == uuid.Nil || uid == env.userID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteJSON(env.msg); err != nil {
			h.log.Warn(context.Background(), "websocket send failed", "type", env.msg.Type, "err", err)
			h.remove(conn)
		}
	}
}

// HandleWebSocket upgrades an HTTP connection to WebSocket
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := h.identify(r)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.connections[ws] = userID
	h.mu.Unlock()

	// Read messages from the client (to keep the connection alive)
	go func() {
		defer h.remove(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(msg models.Message) {
	h.enqueue(envelope{msg: msg})
}

// SendToUser queues a message for the connections of one user.
func (h *Hub) SendToUser(userID uuid.UUID, msg models.Message) {
	if userID == uuid.Nil {
		return
	}
	h.enqueue(envelope{userID: userID, msg: msg})
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.outbox <- env:
	default:
		h.log.Error(context.Background(), "websocket outbox full, dropping message", "type", env.msg.Type)
	}
}

// ConnectionCount returns the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	delete(h.connections, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := h.connections
	h.connections = make(map[*websocket.Conn]uuid.UUID)
	h.mu.Unlock()
	for conn := range conns {
		conn.Close()
	}
}
