package kinematics

import "math"

// Target is the drag target in the arm's vertical work plane: forward
// radial distance from the yaw axis and world height, both meters.
type Target struct {
	R float64 `json:"r"`
	Z float64 `json:"z"`
}

// Clamp bounds a target to the annulus the arm can ever occupy.
func (t Target) Clamp() Target {
	return Target{
		R: clamp(t.R, 0, Reach),
		Z: clamp(t.Z, 0, BaseHeight+Reach),
	}
}

// Cost weights for ranking admissible branches. The positional error is in
// meters, the other two terms in degrees, so the angle terms only break
// near-ties between branches that reach the target equally well.
const (
	effortWeight     = 0.001
	continuityWeight = 0.005
)

// Solve maps a work-plane target to joint angles. The tool angle (the
// wrist link's orientation) is underdetermined, so the solver enumerates
// candidate tool angles, solves the remaining 2-link triangle for each,
// and keeps the admissible branch with the lowest cost. prev biases the
// search toward the previous pose and is carried into the continuity term;
// its yaw passes through untouched. Solve never fails: when no candidate
// is admissible it falls back to a clamped elbow-up construction that is
// inside limits but may not reach the target.
func Solve(r, z float64, prev *JointAngles) JointAngles {
	if r < 0 {
		r = 0
	}
	px := r
	pz := z - BaseHeight

	ax := px
	if ax <= 1e-9 {
		ax = 1e-9
	}
	baseTool := math.Atan2(pz, ax)

	// Candidate tool angles: a band around the line of sight, a coarse
	// full-circle sweep, and a fine band around the previous tool angle.
	cands := make([]float64, 0, 84)
	for d := -90; d <= 90; d += 5 {
		cands = append(cands, baseTool+Radians(float64(d)))
	}
	for d := -180; d <= 180; d += 15 {
		cands = append(cands, Radians(float64(d)))
	}
	if prev != nil {
		prevTool := Radians(prev.Shoulder + prev.Elbow + prev.Wrist)
		for d := -20; d <= 20; d += 2 {
			cands = append(cands, prevTool+Radians(float64(d)))
		}
	}

	out := JointAngles{}
	if prev != nil {
		out.Yaw = prev.Yaw
	}

	bestCost := math.Inf(1)
	found := false

	for _, tool := range cands {
		cx := px - L3*math.Cos(tool)
		cz := pz - L3*math.Sin(tool)

		d2 := cx*cx + cz*cz
		d := math.Sqrt(d2)
		if d > L1+L2 || d < math.Abs(L1-L2) {
			continue
		}

		cosEl := clamp((d2-L1*L1-L2*L2)/(2*L1*L2), -1, 1)
		el0 := math.Acos(cosEl)

		for branch := 0; branch < 2; branch++ {
			elbowRel := el0
			if branch == 1 {
				elbowRel = -el0
			}
			sh := math.Atan2(cz, cx) - math.Atan2(L2*math.Sin(elbowRel), L1+L2*math.Cos(elbowRel))

			shDeg := Degrees(sh)
			elDeg := Degrees(elbowRel)
			wrDeg := WrapDeg(Degrees(tool - sh - elbowRel))

			if shDeg < ShoulderMin || shDeg > ShoulderMax {
				continue
			}
			if elDeg < ElbowMin || elDeg > ElbowMax {
				continue
			}
			if wrDeg < WristMin || wrDeg > WristMax {
				continue
			}

			// Reconstruct the tip in-plane with the wrapped wrist so the
			// error term scores what would actually be commanded.
			th1 := sh
			th2 := sh + elbowRel
			th3 := sh + elbowRel + Radians(wrDeg)
			xf := L1*math.Cos(th1) + L2*math.Cos(th2) + L3*math.Cos(th3)
			zf := L1*math.Sin(th1) + L2*math.Sin(th2) + L3*math.Sin(th3)
			err := math.Hypot(xf-px, zf-pz)

			cost := err + effortWeight*(math.Abs(shDeg)+math.Abs(elDeg)+math.Abs(wrDeg))
			if prev != nil {
				cost += continuityWeight * (math.Abs(shDeg-prev.Shoulder) +
					math.Abs(elDeg-prev.Elbow) +
					math.Abs(wrDeg-prev.Wrist))
			}

			if !found || cost < bestCost {
				bestCost = cost
				out.Shoulder = shDeg
				out.Elbow = elDeg
				out.Wrist = wrDeg
				found = true
			}
		}
	}

	if !found {
		// Nothing admissible at any sampled tool angle. Build the elbow-up
		// pose along the line of sight and clamp each joint independently.
		// The result stays inside limits but may miss the target.
		tool := baseTool
		cx := px - L3*math.Cos(tool)
		cz := pz - L3*math.Sin(tool)
		d2 := cx*cx + cz*cz
		cosEl := clamp((d2-L1*L1-L2*L2)/(2*L1*L2), -1, 1)
		el0 := math.Acos(cosEl)
		sh := math.Atan2(cz, cx) - math.Atan2(L2*math.Sin(el0), L1+L2*math.Cos(el0))
		wr := tool - sh - el0

		out.Shoulder = clamp(Degrees(sh), ShoulderMin, ShoulderMax)
		out.Elbow = clamp(Degrees(el0), ElbowMin, ElbowMax)
		out.Wrist = clamp(WrapDeg(Degrees(wr)), WristMin, WristMax)
	}

	return out
}
