package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 32
	dispatchBuffer = 256
)

// client is one websocket connection of an owner.
type client struct {
	id      string
	ownerID string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub fans notifications out to the websocket connections of each owner.
// Delivery is best-effort: a full buffer drops the notification.
type Hub struct {
	clients    map[string]*client         // clientID -> client
	owners     map[string]map[string]bool // ownerID -> set of clientIDs
	register   chan *client
	unregister chan *client
	dispatch   chan Notification
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		owners:     make(map[string]map[string]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		dispatch:   make(chan Notification, dispatchBuffer),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: slog.Default().With("component", "hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("notification hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("notification hub shutting down")
			h.closeAllClients()
			close(h.done)
			return nil
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case n := <-h.dispatch:
			h.handleDispatch(n)
		}
	}
}

// Dispatch queues a notification for the owner's connections without blocking.
func (h *Hub) Dispatch(n Notification) {
	select {
	case h.dispatch <- n:
	default:
		h.log.Warn("notification dropped, hub busy", "type", n.Type, "task_id", n.TaskID)
	}
}

// NotifyTaskClosed implements domain.NotificationSink.
func (h *Hub) NotifyTaskClosed(_ context.Context, ownerID, taskID string) {
	h.Dispatch(Notification{Type: KindTaskClosed, OwnerID: ownerID, TaskID: taskID})
}

// NotifyTaskRestored implements domain.NotificationSink.
func (h *Hub) NotifyTaskRestored(_ context.Context, ownerID, taskID string) {
	h.Dispatch(Notification{Type: KindTaskRestored, OwnerID: ownerID, TaskID: taskID})
}

// NotifyTaskUpdated implements domain.NotificationSink.
func (h *Hub) NotifyTaskUpdated(_ context.Context, ownerID, taskID string) {
	h.Dispatch(Notification{Type: KindTaskUpdated, OwnerID: ownerID, TaskID: taskID})
}

// ServeWS upgrades the request and streams the owner's notifications until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, ownerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OwnerClientCount returns the number of connections of one owner.
func (h *Hub) OwnerClientCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

func (h *Hub) handleRegister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	if h.owners[c.ownerID] == nil {
		h.owners[c.ownerID] = make(map[string]bool)
	}
	h.owners[c.ownerID][c.id] = true
	h.log.Debug("client registered", "client_id", c.id, "owner_id", c.ownerID)
}

func (h *Hub) handleUnregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	if ids := h.owners[c.ownerID]; ids != nil {
		delete(ids, c.id)
		if len(ids) == 0 {
			delete(h.owners, c.ownerID)
		}
	}
	close(c.send)
	h.log.Debug("client unregistered", "client_id", c.id, "owner_id", c.ownerID)
}

func (h *Hub) handleDispatch(n Notification) {
	data, err := json.Marshal(Frame{Type: n.Type, TaskID: n.TaskID})
	if err != nil {
		h.log.Error("failed to marshal notification", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.owners[n.OwnerID] {
		c := h.clients[id]
		select {
		case c.send <- data:
		default:
			h.log.Warn("client buffer full, notification dropped", "client_id", c.id, "task_id", n.TaskID)
		}
	}
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[string]*client)
	h.owners = make(map[string]map[string]bool)
}

// readPump discards client messages and keeps the connection alive until it fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Warn("failed to send to client", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
