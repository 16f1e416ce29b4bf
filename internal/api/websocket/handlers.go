package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/training"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream carries no credentials and is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler exposes the event hub over HTTP.
type Handler struct {
	logger *zap.Logger
	hub    *Hub
}

func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger: logger,
		hub:    NewHub(logger),
	}
}

func (h *Handler) Start(ctx context.Context) {
	go h.hub.Run(ctx)
}

func (h *Handler) Stop() {
	h.hub.Stop()
}

func (h *Handler) Hub() *Hub {
	return h.hub
}

// Publish implements insider.Notifier.
func (h *Handler) Publish(ctx context.Context, event training.Event) {
	h.hub.Publish(ctx, event)
}

// HandleEvents upgrades the request and subscribes the connection to model
// refresh events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !h.hub.Running() {
		http.Error(w, ErrEventHubNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// Info summarizes live connections.
type Info struct {
	ActiveConnections int  `json:"active_connections"`
	Running           bool `json:"running"`
}

func (h *Handler) Info() Info {
	return Info{
		ActiveConnections: h.hub.ClientCount(),
		Running:           h.hub.Running(),
	}
}

func (h *Handler) HealthCheck() error {
	if !h.hub.Running() {
		return ErrEventHubNotRunning
	}
	return nil
}

var ErrEventHubNotRunning = &Error{Code: "WS001", Message: "event hub is not running"}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}
