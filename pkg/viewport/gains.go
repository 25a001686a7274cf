package viewport

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// Drag calibration constants: the probe offset in world units, the pixel
// floor that guards the division when a probe collapses on screen, and
// the band the resulting gains are clamped into.
const (
	gainProbe  = 0.05
	pixelFloor = 0.5

	GainMin = 0.003
	GainMax = 0.06
)

// DragGains measures how many world units one screen pixel is worth at a
// point, separately for the radial direction implied by yaw and for the
// vertical axis. The projection's pixel-per-unit ratio depends on the
// view angles and the direction of travel, so the gains are found
// numerically: project the point, project it nudged along each axis, and
// divide the probe offset by the pixel displacement. Gains are clamped
// into [GainMin, GainMax]; callers calibrate once per drag gesture since
// the projection is only locally linear.
func (v View) DragGains(p mgl64.Vec3, yawDeg float64) (gainR, gainZ float64) {
	yr := kinematics.Radians(yawDeg)
	radial := mgl64.Vec3{math.Cos(yr), math.Sin(yr), 0}

	p0 := v.Project(p)
	p1 := v.Project(p.Add(radial.Mul(gainProbe)))
	p2 := v.Project(p.Add(mgl64.Vec3{0, 0, gainProbe}))

	horiz := math.Abs(p1.X - p0.X)
	vert := math.Abs(p2.Y - p0.Y)

	gainR = clamp(gainProbe/math.Max(horiz, pixelFloor), GainMin, GainMax)
	gainZ = clamp(gainProbe/math.Max(vert, pixelFloor), GainMin, GainMax)
	return gainR, gainZ
}
