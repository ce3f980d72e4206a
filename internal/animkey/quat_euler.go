package animkey

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type (
	// Quat and Vec3 are local aliases for readability in this file's
	// Euler-conversion math, which leans on array-style component access.
	Quat = mgl32.Quat
	Vec3 = mgl32.Vec3
)

const twoPi = 2 * math.Pi

// QuatToEuler converts q to XYZ-Tait-Bryan (roll, pitch, yaw) angles in
// radians, replacing the asin clamp with copysign(pi/2, sy) when the
// pitch term saturates (spec.md §4.8).
func QuatToEuler(q Quat) Vec3 {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W

	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	roll := float32(math.Atan2(float64(sinrCosp), float64(cosrCosp)))

	sinp := 2 * (w*y - z*x)
	var pitch float32
	if abs32(sinp) >= 1 {
		pitch = float32(math.Copysign(math.Pi/2, float64(sinp)))
	} else {
		pitch = float32(math.Asin(float64(sinp)))
	}

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	yaw := float32(math.Atan2(float64(sinyCosp), float64(cosyCosp)))

	return Vec3{roll, pitch, yaw}
}

// EulerToQuat is the inverse of QuatToEuler.
func EulerToQuat(e Vec3) Quat {
	cr := float32(math.Cos(float64(e[0]) * 0.5))
	sr := float32(math.Sin(float64(e[0]) * 0.5))
	cp := float32(math.Cos(float64(e[1]) * 0.5))
	sp := float32(math.Sin(float64(e[1]) * 0.5))
	cy := float32(math.Cos(float64(e[2]) * 0.5))
	sy := float32(math.Sin(float64(e[2]) * 0.5))

	w := cr*cp*cy + sr*sp*sy
	x := sr*cp*cy - cr*sp*sy
	y := cr*sp*cy + sr*cp*sy
	z := cr*cp*sy - sr*sp*cy
	return Quat{W: w, V: Vec3{x, y, z}}
}

// stepEulerToward adjusts each component of e by a multiple of 2π so it
// lands as close as possible to ref, preserving winding continuity
// across a resampled Euler curve (spec.md §4.8 step 2).
func stepEulerToward(e, ref Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		k := math.Round(float64(ref[i]-e[i]) / twoPi)
		out[i] = e[i] + float32(k)*float32(twoPi)
	}
	return out
}

type eulerKey struct {
	t float32
	e Vec3
}

// ResampleToEuler converts an already-linear, already-pruned quaternion
// curve into an Euler-angle curve whose linear interpolation approximates
// the quaternion curve to within epsMax (spec.md §4.8).
func ResampleToEuler(times []float32, quats []Quat, epsMax float32, dtMin float32) ([]float32, []Vec3) {
	if len(times) == 0 {
		return nil, nil
	}
	out := []eulerKey{{times[0], QuatToEuler(quats[0])}}
	for i := 0; i < len(times)-1; i++ {
		resampleSegment(times[i], quats[i], times[i+1], quats[i+1], epsMax, dtMin, &out)
	}
	outTimes := make([]float32, len(out))
	outEulers := make([]Vec3, len(out))
	for i, k := range out {
		outTimes[i] = k.t
		outEulers[i] = k.e
	}
	return outTimes, outEulers
}

func resampleSegment(t0 float32, q0 Quat, t1 float32, q1 Quat, epsMax, dtMin float32, out *[]eulerKey) {
	if quatAbsMinDeltaAngle(q0, q1) > 0.9*math.Pi {
		tm := 0.5 * (t0 + t1)
		qm := slerpQuat(q0, q1, 0.5)
		resampleSegment(t0, q0, tm, qm, epsMax, dtMin, out)
		resampleSegment(tm, qm, t1, q1, epsMax, dtMin, out)
		return
	}

	e0 := (*out)[len(*out)-1].e
	e1 := stepEulerToward(QuatToEuler(q1), e0)
	angle := quatAbsMinDeltaAngle(q0, q1)
	n := int(math.Ceil(float64(angle) / (15 * math.Pi / 180)))
	if n < 1 {
		n = 1
	}

	sBegin := float32(0)
	curT0 := t0
	for k := 1; k <= n; k++ {
		s := float32(k) / float32(n)
		es := lerpVec3(e0, e1, s)
		e2qs := EulerToQuat(es)
		qs := slerpQuat(q0, q1, s)
		dt := lerpScalar(t0, t1, s) - curT0
		if quatAbsMinDeltaAngle(qs, e2qs) > epsMax && dt > dtMin {
			sLo, sHi := sBegin, s
			for i := 0; i < 20; i++ {
				sMid := 0.5 * (sLo + sHi)
				em := lerpVec3(e0, e1, sMid)
				qm := slerpQuat(q0, q1, sMid)
				if quatAbsMinDeltaAngle(qm, EulerToQuat(em)) > epsMax {
					sHi = sMid
				} else {
					sLo = sMid
				}
			}
			sFit := sLo
			tFit := lerpScalar(t0, t1, sFit)
			if tFit-curT0 < dtMin {
				tFit = curT0 + dtMin
				if tFit > t1 {
					tFit = t1
				}
				sFit = (tFit - t0) / (t1 - t0)
			}
			qFit := slerpQuat(q0, q1, sFit)
			eFit := stepEulerToward(QuatToEuler(qFit), e0)
			*out = append(*out, eulerKey{tFit, eFit})
			if tFit >= t1 {
				return
			}
			if tFit > t0 {
				// Restart the segment from the committed key.
				resampleSegment(tFit, qFit, t1, q1, epsMax, dtMin, out)
				return
			}
			curT0 = tFit
			sBegin = sFit
		}
	}
	*out = append(*out, eulerKey{t1, e1})
}
