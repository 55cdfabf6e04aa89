// Package realtime streams notification events to connected websocket
// clients, addressed by recipient.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/internal/domain/notification"
	"buildledger/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// TokenValidator resolves the ?token= query parameter.
type TokenValidator interface {
	ValidateToken(token string) (actor.Actor, error)
}

// Client is one websocket connection of one user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID id.ID
	send   chan []byte
}

type delivery struct {
	userID  id.ID
	payload []byte
}

// Hub keeps connected clients per user and routes events to them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[id.ID]map[*Client]struct{}
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewHub creates a hub. allowedOrigins empty accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[id.ID]map[*Client]struct{}),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run dispatches registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			logger.Debug(ctx, "websocket client connected", "user_id", c.userID)
		case c := <-h.unregister:
			h.remove(c)
			logger.Debug(ctx, "websocket client disconnected", "user_id", c.userID)
		case d := <-h.deliver:
			h.mu.Lock()
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.payload:
				default:
					h.dropLocked(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.dropLocked(c)
		}
	}
}

// Connected returns the number of open connections of userID.
func (h *Hub) Connected(userID id.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Deliver queues ev for the recipient's connections. It never blocks the
// caller for longer than ctx allows.
func (h *Hub) Deliver(ctx context.Context, ev notification.Event) {
	if ev.Notification == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warn(ctx, "marshal realtime event", "error", err)
		return
	}
	select {
	case h.deliver <- delivery{userID: ev.Notification.UserID, payload: payload}:
	case <-h.done:
	case <-ctx.Done():
		logger.Warn(ctx, "realtime delivery dropped", "notification_id", ev.Notification.ID)
	}
}

// Publisher delivers to the local hub after commit. Used when the process
// runs without Redis.
type Publisher struct {
	hub *Hub
}

var _ notification.Publisher = (*Publisher)(nil)

// NewPublisher creates a hub-backed publisher.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) Publish(ctx context.Context, n *notification.Notification) error {
	ev := notification.Event{Kind: notification.EventKindCreated, Notification: n}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		p.hub.Deliver(ctx, ev)
	})
	return nil
}

// ServeWs authenticates the ?token= parameter and upgrades the connection.
func (h *Hub) ServeWs(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			_ = c.Error(apperror.NewUnauthenticated("missing token"))
			c.Abort()
			return
		}
		a, err := validator.ValidateToken(token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err)
			return
		}
		client := &Client{hub: h, conn: conn, userID: a.UserID(), send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump only keeps the connection alive; clients do not send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug(context.Background(), "websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}
