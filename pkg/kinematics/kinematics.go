// Package kinematics is the math core for a 4-link, 4-DOF hobby arm
// (base yaw, shoulder, elbow, wrist). It provides the forward-kinematics
// transform chain over the five arm frames and a planar grid-search
// inverse solver that keeps interactive targeting inside joint limits.
//
// Angles cross the package boundary in degrees, matching the servo and
// slider conventions of the rest of the system. Shoulder is absolute from
// horizontal; elbow and wrist are relative to the preceding link.
package kinematics

import "math"

// Link geometry in meters.
const (
	BaseHeight = 0.35 // yaw column, frame O up to frame A
	L1         = 1.00 // upper arm
	L2         = 0.80 // forearm
	L3         = 0.60 // wrist link to the tip

	// Reach is the maximum planar extension measured from frame A.
	Reach = L1 + L2 + L3
)

// Joint limits in degrees.
const (
	YawMin      = -90.0
	YawMax      = 90.0
	ShoulderMin = -90.0
	ShoulderMax = 90.0
	ElbowMin    = -135.0
	ElbowMax    = 135.0
	WristMin    = -135.0
	WristMax    = 135.0
)

// JointAngles is one arm pose in degrees.
type JointAngles struct {
	Yaw      float64 `json:"yaw"`
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
	Wrist    float64 `json:"wrist"`
}

// Home returns the all-zero pose every session starts from.
func Home() JointAngles {
	return JointAngles{}
}

// Clamp returns a copy with every joint inside its limit.
func (j JointAngles) Clamp() JointAngles {
	return JointAngles{
		Yaw:      clamp(j.Yaw, YawMin, YawMax),
		Shoulder: clamp(j.Shoulder, ShoulderMin, ShoulderMax),
		Elbow:    clamp(j.Elbow, ElbowMin, ElbowMax),
		Wrist:    clamp(j.Wrist, WristMin, WristMax),
	}
}

// InLimits reports whether every joint is inside its limit.
func (j JointAngles) InLimits() bool {
	return j == j.Clamp()
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// WrapDeg wraps an angle into [-180, 180).
func WrapDeg(deg float64) float64 {
	for deg >= 180.0 {
		deg -= 360.0
	}
	for deg < -180.0 {
		deg += 360.0
	}
	return deg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
