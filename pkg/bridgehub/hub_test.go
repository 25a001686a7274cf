package bridgehub

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-armdeck/pkg/protocol"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.BridgeCount() != 0 {
		t.Error("BridgeCount should be 0 initially")
	}
}

func TestGetStats(t *testing.T) {
	hub := NewHub()

	stats := hub.GetStats()

	if stats.BridgeCount != 0 {
		t.Error("BridgeCount should be 0")
	}
	if stats.MessagesReceived != 0 {
		t.Error("MessagesReceived should be 0")
	}
	if stats.WeightsReceived != 0 {
		t.Error("WeightsReceived should be 0")
	}
}

func TestCallbackSetters(t *testing.T) {
	hub := NewHub()

	// Set all callbacks - should not panic
	hub.OnHello(func(bridgeID string, hello *protocol.HelloData) {})
	hub.OnWeight(func(bridgeID string, weight *protocol.WeightData) {})
}

func TestGetBridgeNotFound(t *testing.T) {
	hub := NewHub()

	bridge := hub.GetBridge("nonexistent")
	if bridge != nil {
		t.Error("GetBridge should return nil for nonexistent bridge")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	hub := NewHub()

	infos := hub.Snapshot()
	if len(infos) != 0 {
		t.Error("Snapshot should return empty slice initially")
	}
}

func TestGenerateBridgeID(t *testing.T) {
	id := generateBridgeID()

	if len(id) != 8 {
		t.Errorf("Bridge ID length = %d, want 8", len(id))
	}

	if id == generateBridgeID() {
		t.Error("Bridge IDs should be unique")
	}
}

func TestRegisterRoutes(t *testing.T) {
	hub := NewHub()
	app := fiber.New()

	// Should not panic
	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))
}

func TestWebSocketConnection(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)

	go app.Listen(":18090")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Wait for connection to be registered
	time.Sleep(50 * time.Millisecond)

	if hub.BridgeCount() != 1 {
		t.Errorf("BridgeCount = %d, want 1", hub.BridgeCount())
	}

	// Close and verify disconnect
	ws.Close()
	time.Sleep(100 * time.Millisecond)

	if hub.BridgeCount() != 0 {
		t.Errorf("BridgeCount = %d, want 0 after disconnect", hub.BridgeCount())
	}
}

func TestHelloUpdatesBridge(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)

	var helloReceived atomic.Bool
	hub.OnHello(func(bridgeID string, hello *protocol.HelloData) {
		helloReceived.Store(true)
	})

	go app.Listen(":18091")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	msg, _ := protocol.NewHelloMessage("bench-rig", 3, "test")
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	time.Sleep(100 * time.Millisecond)

	if !helloReceived.Load() {
		t.Error("Hello callback should have been called")
	}

	infos := hub.Snapshot()
	if len(infos) != 1 {
		t.Fatalf("Snapshot length = %d, want 1", len(infos))
	}
	if infos[0].Name != "bench-rig" {
		t.Errorf("Name = %s, want bench-rig", infos[0].Name)
	}
	if infos[0].Channels != 3 {
		t.Errorf("Channels = %d, want 3", infos[0].Channels)
	}
}

func TestWeightCallback(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)

	var weightReceived atomic.Bool
	var gotRaw []int32

	hub.OnWeight(func(bridgeID string, weight *protocol.WeightData) {
		gotRaw = weight.Raw
		weightReceived.Store(true)
	})

	go app.Listen(":18092")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	msg, _ := protocol.NewWeightMessage(0.25, []int32{1200, -80}, nil)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	time.Sleep(100 * time.Millisecond)

	if !weightReceived.Load() {
		t.Error("Weight callback should have been called")
	}
	if len(gotRaw) != 2 || gotRaw[0] != 1200 || gotRaw[1] != -80 {
		t.Errorf("Raw = %v, want [1200 -80]", gotRaw)
	}

	stats := hub.GetStats()
	if stats.WeightsReceived < 1 {
		t.Error("WeightsReceived should be at least 1")
	}
}

func TestSendPulse(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)

	go app.Listen(":18093")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18093/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	frame := servo.Frame{Yaw: 1500, Shoulder: 2000, Elbow: 1000, Wrist: 1500, Pump: 500}
	hub.SendPulse(frame)

	// Read the message
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	if msg.Type != protocol.TypePulse {
		t.Errorf("Type = %s, want pulse", msg.Type)
	}

	pulse, err := msg.GetPulseData()
	if err != nil {
		t.Fatalf("GetPulseData error: %v", err)
	}
	if pulse.Frame != frame {
		t.Errorf("Frame = %+v, want %+v", pulse.Frame, frame)
	}
}

func TestSendToNonexistentBridge(t *testing.T) {
	hub := NewHub()

	err := hub.SendPong("nonexistent", time.Now().UnixMilli())
	if err == nil {
		t.Error("SendPong should return error for nonexistent bridge")
	}
}

func TestAPIListBridges(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	req := httptest.NewRequest("GET", "/api/bridges/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "bridges") {
		t.Error("Response should contain 'bridges' field")
	}
}

func TestAPIStats(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	req := httptest.NewRequest("GET", "/api/bridges/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub()

	// Broadcast to empty hub should not panic
	msg, _ := protocol.NewMessage(protocol.TypePing, nil)
	hub.Broadcast(msg)
}

func TestPingPong(t *testing.T) {
	hub := NewHub()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)

	go app.Listen(":18094")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18094/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)

	// Send ping
	msg, _ := protocol.NewMessage(protocol.TypePing, nil)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	// Read pong
	_, respData, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	var resp protocol.Message
	json.Unmarshal(respData, &resp)

	if resp.Type != protocol.TypePong {
		t.Errorf("Type = %s, want pong", resp.Type)
	}
}
