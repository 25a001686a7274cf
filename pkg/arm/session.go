// Package arm owns the deck's interaction state: the current pose, the
// drag target, the view and the pump level, with one operation per
// dashboard gesture. Every operation costs at most one inverse solve and
// one forward pass, so they run synchronously on the event that triggered
// them.
package arm

import (
	"errors"
	"sync"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
	"github.com/teslashibe/go-armdeck/pkg/viewport"
)

// ErrUnknownJoint is returned when a joint name is not one of
// yaw, shoulder, elbow or wrist.
var ErrUnknownJoint = errors.New("arm: unknown joint")

// Joint names accepted by SetJoint.
const (
	JointYaw      = "yaw"
	JointShoulder = "shoulder"
	JointElbow    = "elbow"
	JointWrist    = "wrist"
)

// Gains applied to a drag before the first calibration of a gesture.
const defaultDragGain = 0.015

// WarnReachFraction is the reach fraction above which panels show the
// near-limit warning.
const WarnReachFraction = 0.93

// State is a consistent snapshot of the session, ready to render.
type State struct {
	Joints   kinematics.JointAngles `json:"joints"`
	Target   kinematics.Target      `json:"target"`
	Frames   kinematics.FrameSet    `json:"frames"`
	Screen   [5]viewport.Point      `json:"screen"`
	View     viewport.View          `json:"view"`
	Pump     float64                `json:"pump"`
	Reach    float64                `json:"reach"`
	Dragging bool                   `json:"dragging"`
	GainR    float64                `json:"gain_r"`
	GainZ    float64                `json:"gain_z"`
}

// NearLimit reports whether the tip is close enough to full extension to
// warrant the dashboard warning.
func (s State) NearLimit() bool {
	return s.Reach > WarnReachFraction
}

// Session is the mutable interaction state. All methods are safe for
// concurrent use. Each mutation fires the change callback, outside the
// lock, with the snapshot taken during that mutation.
type Session struct {
	mu       sync.RWMutex
	joints   kinematics.JointAngles
	target   kinematics.Target
	view     viewport.View
	pump     float64
	dragging bool
	gainR    float64
	gainZ    float64

	onChange func(State)
}

// NewSession starts at the home pose with the target synchronized from
// the forward chain.
func NewSession(view viewport.View) *Session {
	s := &Session{
		view:  view,
		gainR: defaultDragGain,
		gainZ: defaultDragGain,
	}
	s.joints = kinematics.Home()
	s.syncTargetLocked()
	return s
}

// OnChange registers the observer called after every mutation. Register
// before the session is shared; later calls replace the observer.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SetJoint moves one named joint, clamps it to its limit and
// re-synchronizes the target from the new tip position.
func (s *Session) SetJoint(name string, deg float64) error {
	s.mu.Lock()
	j := s.joints
	switch name {
	case JointYaw:
		j.Yaw = deg
	case JointShoulder:
		j.Shoulder = deg
	case JointElbow:
		j.Elbow = deg
	case JointWrist:
		j.Wrist = deg
	default:
		s.mu.Unlock()
		return ErrUnknownJoint
	}
	s.joints = j.Clamp()
	s.syncTargetLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

// SetJoints replaces the whole pose (clamped) and re-synchronizes the
// target. This is also the sink scripted motion drives.
func (s *Session) SetJoints(j kinematics.JointAngles) {
	s.mu.Lock()
	s.joints = j.Clamp()
	s.syncTargetLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// ApplyMotion implements the pose sink used by the motion manager.
func (s *Session) ApplyMotion(j kinematics.JointAngles) {
	s.SetJoints(j)
}

// SetTarget aims the tip at a work-plane target directly, seeding the
// solve with the current pose.
func (s *Session) SetTarget(r, z float64) {
	s.mu.Lock()
	s.target = kinematics.Target{R: r, Z: z}.Clamp()
	prev := s.joints
	s.joints = kinematics.Solve(s.target.R, s.target.Z, &prev)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// BeginDrag calibrates the drag gains at the current tip position. The
// gains hold for the whole gesture.
func (s *Session) BeginDrag() (gainR, gainZ float64) {
	s.mu.Lock()
	f := kinematics.Forward(s.joints)
	s.gainR, s.gainZ = s.view.DragGains(f.D, s.joints.Yaw)
	s.dragging = true
	gainR, gainZ = s.gainR, s.gainZ
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return gainR, gainZ
}

// DragBy converts a screen-pixel delta into a work-plane target delta
// using the calibrated gains and re-solves, seeded by the current pose
// for continuity. Screen y grows downward, so a negative dy raises the
// target.
func (s *Session) DragBy(dx, dy float64) {
	s.mu.Lock()
	s.target = kinematics.Target{
		R: s.target.R + dx*s.gainR,
		Z: s.target.Z - dy*s.gainZ,
	}.Clamp()
	prev := s.joints
	s.joints = kinematics.Solve(s.target.R, s.target.Z, &prev)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// EndDrag finishes the gesture.
func (s *Session) EndDrag() {
	s.mu.Lock()
	s.dragging = false
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// Orbit rotates the view by a mouse delta.
func (s *Session) Orbit(dx, dy float64) {
	s.mu.Lock()
	s.view = s.view.Orbit(dx, dy)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// SetView places the view angles directly.
func (s *Session) SetView(azimuth, elevation float64) {
	s.mu.Lock()
	s.view.Azimuth = azimuth
	s.view.Elevation = clampFloat(elevation, -89, 89)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// SetPump sets the pump power in percent, clamped to 0..100.
func (s *Session) SetPump(percent float64) {
	s.mu.Lock()
	s.pump = clampFloat(percent, 0, 100)
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

// Reset returns to the home pose with the pump off and the target
// re-synchronized. The view is left where the operator put it.
func (s *Session) Reset() {
	s.mu.Lock()
	s.joints = kinematics.Home()
	s.pump = 0
	s.dragging = false
	s.gainR, s.gainZ = defaultDragGain, defaultDragGain
	s.syncTargetLocked()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

func (s *Session) syncTargetLocked() {
	r, z := kinematics.Forward(s.joints).TipPlanar()
	s.target = kinematics.Target{R: r, Z: z}
}

func (s *Session) snapshotLocked() State {
	f := kinematics.Forward(s.joints)
	pts := f.Points()

	st := State{
		Joints:   s.joints,
		Target:   s.target,
		Frames:   f,
		View:     s.view,
		Pump:     s.pump,
		Reach:    f.ReachFraction(),
		Dragging: s.dragging,
		GainR:    s.gainR,
		GainZ:    s.gainZ,
	}
	for i, p := range pts {
		st.Screen[i] = s.view.Project(p)
	}
	return st
}

func (s *Session) notify(st State) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(st)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
