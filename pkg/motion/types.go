// Package motion plays scripted joint-space moves through a single
// fixed-rate control loop:
// - Moves are queued and played one at a time
// - The Manager evaluates the active move at 30Hz and drives a PoseSink
// - Steps are rate-limited so a queued move never snaps the arm
package motion

import (
	"time"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// Move represents an animation that provides joint poses over time.
type Move interface {
	// Name returns the move identifier (for logging).
	Name() string

	// Duration returns the total duration of the move.
	// Returns 0 for infinite/continuous moves.
	Duration() time.Duration

	// Evaluate returns the pose at time t since move start.
	Evaluate(t time.Duration) kinematics.JointAngles

	// IsComplete returns true when the move has finished.
	IsComplete(t time.Duration) bool
}

// PoseSink receives the pose computed on each control tick.
type PoseSink interface {
	ApplyMotion(kinematics.JointAngles)
}

// lerp performs linear interpolation.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// smoothstep provides smooth easing (slow start/end).
func smoothstep(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}
