// Package servo maps joint angles and pump power to RC pulse widths and
// frames them for the servo bridge.
package servo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// Pulse width mapping. A centered servo sits at 1500 µs and travels
// ±1000 µs over ±90°; everything is clamped to the band the ESCs accept.
const (
	CenterUS    = 1500
	USPerDegree = 1000.0 / 90.0
	MinUS       = 500
	MaxUS       = 2500

	PumpMinUS = 500
	PumpMaxUS = 2500
)

// PulseForAngle converts a joint angle in degrees to a pulse width in
// microseconds.
func PulseForAngle(deg float64) int {
	us := int(CenterUS + deg*USPerDegree)
	if us < MinUS {
		return MinUS
	}
	if us > MaxUS {
		return MaxUS
	}
	return us
}

// PulseForPump converts pump power in percent (0..100) to a pulse width
// in microseconds.
func PulseForPump(percent float64) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(PumpMinUS + percent*(PumpMaxUS-PumpMinUS)/100)
}

// Frame is one complete pulse command for the arm, in microseconds.
type Frame struct {
	Yaw      int `json:"yaw"`
	Shoulder int `json:"shoulder"`
	Elbow    int `json:"elbow"`
	Wrist    int `json:"wrist"`
	Pump     int `json:"pump"`
}

// FrameForPose builds the frame driving a pose at the given pump power.
func FrameForPose(j kinematics.JointAngles, pumpPercent float64) Frame {
	return Frame{
		Yaw:      PulseForAngle(j.Yaw),
		Shoulder: PulseForAngle(j.Shoulder),
		Elbow:    PulseForAngle(j.Elbow),
		Wrist:    PulseForAngle(j.Wrist),
		Pump:     PulseForPump(pumpPercent),
	}
}

// Encode renders the frame in wire form, one line per frame:
//
//	P <yaw> <shoulder> <elbow> <wrist> <pump>\n
func (f Frame) Encode() []byte {
	return []byte(fmt.Sprintf("P %d %d %d %d %d\n", f.Yaw, f.Shoulder, f.Elbow, f.Wrist, f.Pump))
}

// ParseFrame parses one wire line produced by Encode. The trailing
// newline is optional.
func ParseFrame(line string) (Frame, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 || fields[0] != "P" {
		return Frame{}, fmt.Errorf("servo: malformed frame %q", line)
	}

	vals := make([]int, 5)
	for i, field := range fields[1:] {
		v, err := strconv.Atoi(field)
		if err != nil {
			return Frame{}, fmt.Errorf("servo: malformed frame %q: %w", line, err)
		}
		vals[i] = v
	}

	return Frame{
		Yaw:      vals[0],
		Shoulder: vals[1],
		Elbow:    vals[2],
		Wrist:    vals[3],
		Pump:     vals[4],
	}, nil
}
