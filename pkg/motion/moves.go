package motion

import (
	"time"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// ============================================================
// SweepMove - Exercises every joint through its full range
// ============================================================

// DefaultSweepSegment is the duration of one sweep leg when none is given.
const DefaultSweepSegment = 1200 * time.Millisecond

var sweepRanges = [4]struct{ min, max float64 }{
	{kinematics.YawMin, kinematics.YawMax},
	{kinematics.ShoulderMin, kinematics.ShoulderMax},
	{kinematics.ElbowMin, kinematics.ElbowMax},
	{kinematics.WristMin, kinematics.WristMax},
}

// SweepMove runs each joint in turn from home to its minimum, across to
// its maximum and back home, one joint at a time. It doubles as the demo
// routine and as a quick servo range check.
type SweepMove struct {
	segment time.Duration
}

// NewSweepMove creates the sweep. A non-positive segment selects the
// default leg duration.
func NewSweepMove(segment time.Duration) *SweepMove {
	if segment <= 0 {
		segment = DefaultSweepSegment
	}
	return &SweepMove{segment: segment}
}

// Name returns "sweep".
func (m *SweepMove) Name() string {
	return "sweep"
}

// Duration returns the total sweep duration (three legs per joint).
func (m *SweepMove) Duration() time.Duration {
	return time.Duration(len(sweepRanges)*3) * m.segment
}

// Evaluate returns the sweep pose at time t. Only one joint is away from
// home at any moment.
func (m *SweepMove) Evaluate(t time.Duration) kinematics.JointAngles {
	if t < 0 || t >= m.Duration() {
		return kinematics.Home()
	}

	leg := int(t / m.segment)
	alpha := smoothstep(float64(t%m.segment) / float64(m.segment))

	joint := leg / 3
	r := sweepRanges[joint]

	var value float64
	switch leg % 3 {
	case 0:
		value = lerp(0, r.min, alpha)
	case 1:
		value = lerp(r.min, r.max, alpha)
	case 2:
		value = lerp(r.max, 0, alpha)
	}

	return poseWithJoint(joint, value)
}

// IsComplete returns true when every joint has been swept.
func (m *SweepMove) IsComplete(t time.Duration) bool {
	return t >= m.Duration()
}

// poseWithJoint returns the home pose with a single joint displaced.
func poseWithJoint(joint int, value float64) kinematics.JointAngles {
	j := kinematics.Home()
	switch joint {
	case 0:
		j.Yaw = value
	case 1:
		j.Shoulder = value
	case 2:
		j.Elbow = value
	case 3:
		j.Wrist = value
	}
	return j
}

// ============================================================
// TransitionMove - Smooth transition between poses
// ============================================================

// TransitionMove smoothly transitions from start to end pose.
type TransitionMove struct {
	name     string
	start    kinematics.JointAngles
	end      kinematics.JointAngles
	duration time.Duration
}

// NewTransitionMove creates a smooth transition between two poses.
func NewTransitionMove(start, end kinematics.JointAngles, duration time.Duration) *TransitionMove {
	return &TransitionMove{
		name:     "transition",
		start:    start,
		end:      end,
		duration: duration,
	}
}

// NewHomingMove creates a transition from the given pose back to home.
func NewHomingMove(from kinematics.JointAngles, duration time.Duration) *TransitionMove {
	m := NewTransitionMove(from, kinematics.Home(), duration)
	m.name = "homing"
	return m
}

// Name returns the transition identifier.
func (m *TransitionMove) Name() string {
	return m.name
}

// Duration returns the transition duration.
func (m *TransitionMove) Duration() time.Duration {
	return m.duration
}

// Evaluate returns the eased pose at time t.
func (m *TransitionMove) Evaluate(t time.Duration) kinematics.JointAngles {
	if t >= m.duration {
		return m.end
	}

	alpha := smoothstep(t.Seconds() / m.duration.Seconds())
	return kinematics.JointAngles{
		Yaw:      lerp(m.start.Yaw, m.end.Yaw, alpha),
		Shoulder: lerp(m.start.Shoulder, m.end.Shoulder, alpha),
		Elbow:    lerp(m.start.Elbow, m.end.Elbow, alpha),
		Wrist:    lerp(m.start.Wrist, m.end.Wrist, alpha),
	}
}

// IsComplete returns true when the transition is done.
func (m *TransitionMove) IsComplete(t time.Duration) bool {
	return t >= m.duration
}

// ============================================================
// HoldMove - Holds a static pose
// ============================================================

// HoldMove holds a static pose indefinitely.
type HoldMove struct {
	pose kinematics.JointAngles
}

// NewHoldMove creates a static pose move.
func NewHoldMove(pose kinematics.JointAngles) *HoldMove {
	return &HoldMove{pose: pose}
}

// Name returns "hold".
func (m *HoldMove) Name() string {
	return "hold"
}

// Duration returns 0 (infinite).
func (m *HoldMove) Duration() time.Duration {
	return 0
}

// Evaluate returns the static pose.
func (m *HoldMove) Evaluate(t time.Duration) kinematics.JointAngles {
	return m.pose
}

// IsComplete always returns false.
func (m *HoldMove) IsComplete(t time.Duration) bool {
	return false
}
