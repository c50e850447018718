package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/modrelay/backend/internal/events"
	"github.com/modrelay/backend/internal/metrics"
	"go.uber.org/zap"
)

// wsConn is the part of *websocket.Conn the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
}

// WSHub pushes moderation events to every connected dashboard.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.Mutex
	connections map[wsConn]struct{}
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[wsConn]struct{}),
	}
}

// Start subscribes to the moderation stream. Without a subscriber the hub
// accepts connections but never pushes.
func (h *WSHub) Start(ctx context.Context) error {
	if h.subscriber == nil {
		h.log.Warn("ws hub has no subscriber, live feed disabled")
		return nil
	}
	return h.subscriber.Subscribe(ctx, events.StreamModeration, h.Broadcast)
}

func (h *WSHub) Broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

func (h *WSHub) register(conn wsConn) {
	h.mu.Lock()
	h.connections[conn] = struct{}{}
	n := len(h.connections)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
}

func (h *WSHub) unregister(conn wsConn) {
	h.mu.Lock()
	delete(h.connections, conn)
	n := len(h.connections)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
}

func (h *WSHub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
