package protocol

import (
	"github.com/teslashibe/go-armdeck/pkg/kinematics"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewStateMessage creates a state snapshot message
func NewStateMessage(data StateData) (*Message, error) {
	return NewMessage(TypeState, data)
}

// NewSetJointMessage creates a single-joint command
func NewSetJointMessage(joint string, value float64) (*Message, error) {
	return NewMessage(TypeSetJoint, SetJointData{
		Joint: joint,
		Value: value,
	})
}

// NewPoseMessage creates a whole-pose command
func NewPoseMessage(j kinematics.JointAngles) (*Message, error) {
	return NewMessage(TypePose, j)
}

// NewSetPumpMessage creates a pump power command
func NewSetPumpMessage(percent float64) (*Message, error) {
	return NewMessage(TypeSetPump, SetPumpData{Percent: percent})
}

// NewTargetMessage creates a direct tip target command
func NewTargetMessage(r, z float64) (*Message, error) {
	return NewMessage(TypeTarget, TargetData{R: r, Z: z})
}

// NewDragStartMessage creates a drag begin marker
func NewDragStartMessage() (*Message, error) {
	return NewMessage(TypeDragStart, nil)
}

// NewDragMoveMessage creates a drag delta command
func NewDragMoveMessage(dx, dy float64) (*Message, error) {
	return NewMessage(TypeDragMove, DragMoveData{DX: dx, DY: dy})
}

// NewDragEndMessage creates a drag release marker
func NewDragEndMessage() (*Message, error) {
	return NewMessage(TypeDragEnd, nil)
}

// NewOrbitMessage creates a view orbit command
func NewOrbitMessage(dx, dy float64) (*Message, error) {
	return NewMessage(TypeOrbit, DragMoveData{DX: dx, DY: dy})
}

// NewViewMessage creates an absolute view command
func NewViewMessage(azimuth, elevation float64) (*Message, error) {
	return NewMessage(TypeSetView, ViewData{
		Azimuth:   azimuth,
		Elevation: elevation,
	})
}

// NewResetMessage creates a reset command
func NewResetMessage() (*Message, error) {
	return NewMessage(TypeReset, nil)
}

// NewDemoMessage creates a demo start/stop command
func NewDemoMessage(run bool) (*Message, error) {
	return NewMessage(TypeDemo, DemoData{Run: run})
}

// NewHelloMessage creates a bridge announcement
func NewHelloMessage(name string, channels int, version string) (*Message, error) {
	return NewMessage(TypeHello, HelloData{
		Name:     name,
		Channels: channels,
		Version:  version,
	})
}

// NewWeightMessage creates a load cell sample message
func NewWeightMessage(t float64, raw []int32, units []float64) (*Message, error) {
	return NewMessage(TypeWeight, WeightData{
		T:     t,
		Raw:   raw,
		Units: units,
	})
}

// NewPulseMessage creates a servo frame message
func NewPulseMessage(f servo.Frame) (*Message, error) {
	return NewMessage(TypePulse, PulseData{Frame: f})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetStateData extracts a state snapshot from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSetJointData extracts a single-joint command from a message
func (m *Message) GetSetJointData() (*SetJointData, error) {
	var data SetJointData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPoseData extracts a whole-pose command from a message
func (m *Message) GetPoseData() (*kinematics.JointAngles, error) {
	var data kinematics.JointAngles
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSetPumpData extracts a pump command from a message
func (m *Message) GetSetPumpData() (*SetPumpData, error) {
	var data SetPumpData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTargetData extracts a tip target from a message
func (m *Message) GetTargetData() (*TargetData, error) {
	var data TargetData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDragMoveData extracts a drag or orbit delta from a message
func (m *Message) GetDragMoveData() (*DragMoveData, error) {
	var data DragMoveData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetViewData extracts an absolute view command from a message
func (m *Message) GetViewData() (*ViewData, error) {
	var data ViewData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDemoData extracts a demo command from a message
func (m *Message) GetDemoData() (*DemoData, error) {
	var data DemoData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetHelloData extracts a bridge announcement from a message
func (m *Message) GetHelloData() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWeightData extracts a load cell sample from a message
func (m *Message) GetWeightData() (*WeightData, error) {
	var data WeightData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPulseData extracts a servo frame from a message
func (m *Message) GetPulseData() (*PulseData, error) {
	var data PulseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
