// Package bridgehub manages WebSocket connections from hardware bridges
package bridgehub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

// BridgeConnection represents a connected hardware bridge
type BridgeConnection struct {
	ID        string
	Name      string
	Channels  int
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the bridge
func (b *BridgeConnection) Send(msg *protocol.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return b.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from bridges
type Hub struct {
	mu      sync.RWMutex
	bridges map[string]*BridgeConnection

	// Callbacks
	onHello  func(bridgeID string, hello *protocol.HelloData)
	onWeight func(bridgeID string, weight *protocol.WeightData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	weightsReceived  atomic.Uint64
}

// NewHub creates a new bridge hub
func NewHub() *Hub {
	return &Hub{
		bridges: make(map[string]*BridgeConnection),
	}
}

// OnHello sets the callback for bridge handshakes
func (h *Hub) OnHello(callback func(bridgeID string, hello *protocol.HelloData)) {
	h.mu.Lock()
	h.onHello = callback
	h.mu.Unlock()
}

// OnWeight sets the callback for incoming load cell samples
func (h *Hub) OnWeight(callback func(bridgeID string, weight *protocol.WeightData)) {
	h.mu.Lock()
	h.onWeight = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the bridge attach point on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/bridge", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/bridge", websocket.New(h.handleBridge))
}

// handleBridge handles a bridge WebSocket connection
func (h *Hub) handleBridge(c *websocket.Conn) {
	bridge := &BridgeConnection{
		ID:        generateBridgeID(),
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register bridge
	h.mu.Lock()
	h.bridges[bridge.ID] = bridge
	bridgeCount := len(h.bridges)
	h.mu.Unlock()

	log.Info("bridge connected", "bridge", bridge.ID, "total", bridgeCount)

	defer func() {
		h.mu.Lock()
		delete(h.bridges, bridge.ID)
		bridgeCount := len(h.bridges)
		h.mu.Unlock()

		log.Info("bridge disconnected", "bridge", bridge.ID, "total", bridgeCount)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("bridge read error", "bridge", bridge.ID, "error", err)
			return
		}

		bridge.mu.Lock()
		bridge.LastSeen = time.Now()
		bridge.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(bridge, data)
	}
}

// handleMessage processes an incoming message from a bridge
func (h *Hub) handleMessage(bridge *BridgeConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("bridge parse error", "bridge", bridge.ID, "error", err)
		return
	}

	h.mu.RLock()
	helloCb := h.onHello
	weightCb := h.onWeight
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeHello:
		hello, err := msg.GetHelloData()
		if err != nil {
			return
		}

		bridge.mu.Lock()
		bridge.Name = hello.Name
		bridge.Channels = hello.Channels
		bridge.mu.Unlock()

		log.Info("bridge hello", "bridge", bridge.ID, "name", hello.Name, "channels", hello.Channels)
		if helloCb != nil {
			helloCb(bridge.ID, hello)
		}

	case protocol.TypeWeight:
		h.weightsReceived.Add(1)
		if weightCb != nil {
			weight, err := msg.GetWeightData()
			if err == nil {
				weightCb(bridge.ID, weight)
			}
		}

	case protocol.TypePing:
		// Respond with pong
		h.SendPong(bridge.ID, msg.Timestamp)
	}
}

// SendPulse broadcasts a servo pulse frame to all connected bridges
func (h *Hub) SendPulse(frame servo.Frame) {
	msg, err := protocol.NewPulseMessage(frame)
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// SendPong sends a pong response to a bridge
func (h *Hub) SendPong(bridgeID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendToBridge(bridgeID, msg)
}

// sendToBridge sends a message to a specific bridge
func (h *Hub) sendToBridge(bridgeID string, msg *protocol.Message) error {
	h.mu.RLock()
	bridge, ok := h.bridges[bridgeID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "bridge not connected")
	}

	h.messagesSent.Add(1)
	return bridge.Send(msg)
}

// Broadcast sends a message to all connected bridges
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	bridges := make([]*BridgeConnection, 0, len(h.bridges))
	for _, b := range h.bridges {
		bridges = append(bridges, b)
	}
	h.mu.RUnlock()

	for _, bridge := range bridges {
		h.messagesSent.Add(1)
		if err := bridge.Send(msg); err != nil {
			log.Warn("bridge send failed", "bridge", bridge.ID, "error", err)
		}
	}
}

// GetBridge returns a bridge connection by ID
func (h *Hub) GetBridge(bridgeID string) *BridgeConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bridges[bridgeID]
}

// BridgeCount returns the number of connected bridges
func (h *Hub) BridgeCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bridges)
}

// Stats contains hub statistics
type Stats struct {
	BridgeCount      int    `json:"bridge_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	WeightsReceived  uint64 `json:"weights_received"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		BridgeCount:      h.BridgeCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		WeightsReceived:  h.weightsReceived.Load(),
	}
}

// BridgeInfo contains info about a connected bridge
type BridgeInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channels  int       `json:"channels"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Snapshot returns info about all connected bridges
func (h *Hub) Snapshot() []BridgeInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]BridgeInfo, 0, len(h.bridges))
	for _, b := range h.bridges {
		b.mu.Lock()
		infos = append(infos, BridgeInfo{
			ID:        b.ID,
			Name:      b.Name,
			Channels:  b.Channels,
			Connected: b.Connected,
			LastSeen:  b.LastSeen,
		})
		b.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for bridge management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	bridges := api.Group("/bridges")

	// List connected bridges
	bridges.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"bridges": h.Snapshot(),
			"count":   h.BridgeCount(),
		})
	})

	// Get hub stats
	bridges.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}

// generateBridgeID generates a unique bridge connection ID
func generateBridgeID() string {
	return uuid.NewString()[:8]
}
