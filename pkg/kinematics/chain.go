package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// FrameSet holds the absolute positions of the five arm frames in meters:
// base origin, top of the yaw column, and the joints after the shoulder,
// elbow and wrist links. D is the end effector. A FrameSet is derived state,
// recomputed from a pose on every query.
type FrameSet struct {
	O mgl64.Vec3 `json:"o"`
	A mgl64.Vec3 `json:"a"`
	B mgl64.Vec3 `json:"b"`
	C mgl64.Vec3 `json:"c"`
	D mgl64.Vec3 `json:"d"`
}

// Forward composes the arm's transform chain and returns the frame
// positions for a pose. Each link is a rotation about the lateral axis
// followed by a translation along the link's forward axis; transforms
// post-multiply onto the accumulated parent, and a frame's position is the
// translation column of its matrix. Shoulder, elbow and wrist are negated
// before rotating so a positive angle lifts the arm; the inverse solver
// assumes the same sign convention.
func Forward(j JointAngles) FrameSet {
	tO := mgl64.Ident4()
	tA := tO.Mul4(mgl64.HomogRotate3DZ(Radians(j.Yaw))).
		Mul4(mgl64.Translate3D(0, 0, BaseHeight))
	tB := tA.Mul4(link(-Radians(j.Shoulder), L1))
	tC := tB.Mul4(link(-Radians(j.Elbow), L2))
	tD := tC.Mul4(link(-Radians(j.Wrist), L3))

	return FrameSet{
		O: tO.Col(3).Vec3(),
		A: tA.Col(3).Vec3(),
		B: tB.Col(3).Vec3(),
		C: tC.Col(3).Vec3(),
		D: tD.Col(3).Vec3(),
	}
}

// link is one joint's local transform: pitch about Y, then advance along X.
func link(rad, length float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DY(rad).Mul4(mgl64.Translate3D(length, 0, 0))
}

// TipPlanar reduces the end effector to work-plane coordinates: radial
// distance from the yaw axis and world height. Used to re-synchronize the
// drag target after a manual joint edit.
func (f FrameSet) TipPlanar() (r, z float64) {
	return math.Hypot(f.D.X(), f.D.Y()), f.D.Z()
}

// ReachFraction is the tip's distance from the base origin relative to
// Reach. The panels warn above 0.93.
func (f FrameSet) ReachFraction() float64 {
	return f.D.Len() / Reach
}

// Points returns the frames in chain order, O first.
func (f FrameSet) Points() [5]mgl64.Vec3 {
	return [5]mgl64.Vec3{f.O, f.A, f.B, f.C, f.D}
}
