package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
	broadcastQueue = 64
)

// Message types that do not originate from a training run.
const (
	MessageConnected = "connection.established"
	MessagePong      = "pong"
)

// Message is the frame written to subscribers.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

func newMessage(typ string, data any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Hub fans model refresh events out to every connected client.
type Hub struct {
	logger      *zap.Logger
	clients     map[uuid.UUID]*Client
	clientsLock sync.RWMutex
	broadcast   chan *Message
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	stopOnce    sync.Once
	stopped     chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan *Message, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled or Stop
// is called. Remaining clients are disconnected on exit.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Running reports whether Run has not yet returned.
func (h *Hub) Running() bool {
	select {
	case <-h.stopped:
		return false
	case <-h.done:
		return false
	default:
		return true
	}
}

// Publish queues a training event for delivery. It never blocks the
// caller; events are dropped when the queue is full or the hub is down.
func (h *Hub) Publish(ctx context.Context, event training.Event) {
	msg := newMessage(string(event.Type), event)
	select {
	case h.broadcast <- msg:
	case <-h.stopped:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("type", string(event.Type)),
		)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped:
		return false
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsLock.Lock()
	h.clients[client.ID] = client
	h.clientsLock.Unlock()

	h.logger.Info("websocket client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("remote_addr", client.remoteAddr),
	)

	select {
	case client.send <- newMessage(MessageConnected, map[string]any{
		"client_id": client.ID.String(),
		"message":   "subscribed to model refresh events",
	}):
	default:
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
		h.logger.Info("websocket client unregistered",
			zap.String("client_id", client.ID.String()),
		)
	}
}

func (h *Hub) broadcastMessage(msg *Message) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for id, client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Slow consumer; drop it rather than stall the hub.
			h.logger.Warn("websocket client send buffer full, disconnecting",
				zap.String("client_id", id.String()),
			)
			delete(h.clients, id)
			close(client.send)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

// Client is one websocket subscriber.
type Client struct {
	ID         uuid.UUID
	conn       *websocket.Conn
	send       chan *Message
	hub        *Hub
	remoteAddr string
}

func NewClient(conn *websocket.Conn, hub *Hub, remoteAddr string) *Client {
	return &Client{
		ID:         uuid.New(),
		conn:       conn,
		send:       make(chan *Message, sendBuffer),
		hub:        hub,
		remoteAddr: remoteAddr,
	}
}

// ReadPump consumes client frames. Only {"type":"ping"} is understood;
// everything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error",
					zap.String("client_id", c.ID.String()),
					zap.Error(err),
				)
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed client message",
				zap.String("client_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if msg.Type == "ping" {
			c.trySend(newMessage(MessagePong, nil))
		}
	}
}

// trySend delivers a reply unless the hub has already closed the channel.
func (c *Client) trySend(msg *Message) {
	c.hub.clientsLock.RLock()
	defer c.hub.clientsLock.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// WritePump writes queued messages and keepalive pings until the send
// channel is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
