// Package protocol defines the WebSocket message types for the deck's
// two links: dashboard clients on one side and hardware bridges on the
// other. armdeck (server) and armbridge (Pi relay) both speak it.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-armdeck/pkg/arm"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Deck → Dashboard messages
	TypeState MessageType = "state" // Full arm state snapshot

	// Dashboard → Deck messages
	TypeSetJoint  MessageType = "set_joint"  // Move one joint slider
	TypePose      MessageType = "pose"       // Replace the whole pose
	TypeSetPump   MessageType = "set_pump"   // Pump power slider
	TypeTarget    MessageType = "target"     // Aim the tip directly
	TypeDragStart MessageType = "drag_start" // Grab the end effector
	TypeDragMove  MessageType = "drag_move"  // Drag by a pixel delta
	TypeDragEnd   MessageType = "drag_end"   // Release the end effector
	TypeOrbit     MessageType = "orbit"      // Rotate the view
	TypeSetView   MessageType = "view"       // Place the view angles
	TypeReset     MessageType = "reset"      // Back to the home pose
	TypeDemo      MessageType = "demo"       // Start or stop the sweep demo

	// Bridge → Deck messages
	TypeHello  MessageType = "hello"  // Bridge announces itself
	TypeWeight MessageType = "weight" // Load cell sample

	// Deck → Bridge messages
	TypePulse MessageType = "pulse" // Servo pulse frame

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Deck → Dashboard Message Types
// =============================================================================

// StateData is the full render state pushed to every dashboard after any
// mutation. It extends the session snapshot with the data only the deck
// process knows.
type StateData struct {
	arm.State

	Pulses  servo.Frame `json:"pulses"`
	Move    string      `json:"move,omitempty"` // active scripted move
	Weights []float64   `json:"weights,omitempty"`
	Bridges int         `json:"bridges"`
}

// =============================================================================
// Dashboard → Deck Message Types
// =============================================================================

// SetJointData moves one named joint to an absolute angle in degrees.
type SetJointData struct {
	Joint string  `json:"joint"`
	Value float64 `json:"value"`
}

// A TypePose message carries a kinematics.JointAngles payload.

// SetPumpData sets the pump power in percent.
type SetPumpData struct {
	Percent float64 `json:"percent"`
}

// TargetData aims the tip at a work-plane point in meters.
type TargetData struct {
	R float64 `json:"r"`
	Z float64 `json:"z"`
}

// DragMoveData is a pixel delta while dragging the end effector. The
// same shape serves orbit gestures.
type DragMoveData struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ViewData places the view angles directly, in degrees.
type ViewData struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// DemoData starts or stops the sweep demo.
type DemoData struct {
	Run bool `json:"run"`
}

// =============================================================================
// Bridge ↔ Deck Message Types
// =============================================================================

// HelloData announces a bridge after it connects.
type HelloData struct {
	Name     string `json:"name"`
	Channels int    `json:"channels"` // load cell channels wired up
	Version  string `json:"version,omitempty"`
}

// WeightData is one synchronized load cell sample.
type WeightData struct {
	T     float64   `json:"t"` // seconds since the bridge started sampling
	Raw   []int32   `json:"raw"`
	Units []float64 `json:"units,omitempty"` // calibrated, when a factor is set
}

// PulseData carries one servo frame for the bridge to put on the wire.
type PulseData struct {
	Frame servo.Frame `json:"frame"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
