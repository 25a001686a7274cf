package kinematics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vec3Equals(a, b mgl64.Vec3) bool {
	return floatEquals(a.X(), b.X()) && floatEquals(a.Y(), b.Y()) && floatEquals(a.Z(), b.Z())
}

func TestForwardHome(t *testing.T) {
	f := Forward(Home())

	if !vec3Equals(f.O, mgl64.Vec3{0, 0, 0}) {
		t.Errorf("O = %v, want origin", f.O)
	}
	if !vec3Equals(f.A, mgl64.Vec3{0, 0, BaseHeight}) {
		t.Errorf("A = %v, want top of base column", f.A)
	}
	// At all-zero angles every rotation is identity, so the links extend
	// along +X at base height.
	if !vec3Equals(f.B, mgl64.Vec3{L1, 0, BaseHeight}) {
		t.Errorf("B = %v, want %v", f.B, mgl64.Vec3{L1, 0, BaseHeight})
	}
	if !vec3Equals(f.D, mgl64.Vec3{Reach, 0, BaseHeight}) {
		t.Errorf("D = %v, want %v", f.D, mgl64.Vec3{Reach, 0, BaseHeight})
	}
}

func TestForwardDeterministic(t *testing.T) {
	j := JointAngles{Yaw: 33.3, Shoulder: -41.7, Elbow: 88.8, Wrist: -12.1}
	if Forward(j) != Forward(j) {
		t.Error("identical inputs should produce identical frames")
	}
}

func TestForwardShoulderLiftsUp(t *testing.T) {
	// Shoulder at +90 points the whole chain straight up the yaw axis.
	f := Forward(JointAngles{Shoulder: 90})

	want := mgl64.Vec3{0, 0, BaseHeight + Reach}
	if !vec3Equals(f.D, want) {
		t.Errorf("D = %v, want %v", f.D, want)
	}
}

func TestForwardYawSwingsPlane(t *testing.T) {
	f := Forward(JointAngles{Yaw: 90})

	want := mgl64.Vec3{0, Reach, BaseHeight}
	if !vec3Equals(f.D, want) {
		t.Errorf("D = %v, want %v", f.D, want)
	}
}

func TestForwardElbowIsRelative(t *testing.T) {
	// Shoulder 45 then elbow 45: the forearm runs at 90 from horizontal,
	// straight up, not mirroring the shoulder's absolute angle.
	f := Forward(JointAngles{Shoulder: 45, Elbow: 45})

	s := math.Sqrt2 / 2
	wantB := mgl64.Vec3{L1 * s, 0, BaseHeight + L1*s}
	wantC := mgl64.Vec3{L1 * s, 0, BaseHeight + L1*s + L2}
	if !vec3Equals(f.B, wantB) {
		t.Errorf("B = %v, want %v", f.B, wantB)
	}
	if !vec3Equals(f.C, wantC) {
		t.Errorf("C = %v, want %v", f.C, wantC)
	}
}

func TestForwardReachBound(t *testing.T) {
	for yaw := YawMin; yaw <= YawMax; yaw += 45 {
		for sh := ShoulderMin; sh <= ShoulderMax; sh += 30 {
			for el := ElbowMin; el <= ElbowMax; el += 45 {
				for wr := WristMin; wr <= WristMax; wr += 45 {
					j := JointAngles{Yaw: yaw, Shoulder: sh, Elbow: el, Wrist: wr}
					f := Forward(j)
					if d := f.D.Sub(f.A).Len(); d > Reach+floatTolerance {
						t.Fatalf("pose %+v: |D-A| = %v exceeds reach %v", j, d, Reach)
					}
				}
			}
		}
	}
}

func TestTipPlanar(t *testing.T) {
	j := JointAngles{Yaw: 60, Shoulder: 30, Elbow: 20, Wrist: -10}
	f := Forward(j)

	r, z := f.TipPlanar()
	if want := math.Hypot(f.D.X(), f.D.Y()); !floatEquals(r, want) {
		t.Errorf("r = %v, want %v", r, want)
	}
	if !floatEquals(z, f.D.Z()) {
		t.Errorf("z = %v, want %v", z, f.D.Z())
	}

	// The planar radius is yaw-invariant.
	r2, z2 := Forward(JointAngles{Yaw: -45, Shoulder: 30, Elbow: 20, Wrist: -10}).TipPlanar()
	if !floatEquals(r, r2) || !floatEquals(z, z2) {
		t.Errorf("planar tip changed with yaw: (%v,%v) vs (%v,%v)", r, z, r2, z2)
	}
}

func TestReachFractionHome(t *testing.T) {
	// The straight-out home pose measures from the base origin, so the
	// base column pushes it just past 100% and the panels show the
	// near-limit warning immediately at startup.
	got := Forward(Home()).ReachFraction()
	want := math.Hypot(Reach, BaseHeight) / Reach
	if !floatEquals(got, want) {
		t.Errorf("ReachFraction() = %v, want %v", got, want)
	}
	if got <= 1.0 {
		t.Errorf("ReachFraction() = %v, want > 1 at home", got)
	}
}
