package animkey

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func lerpVec3(p0, p1 mgl32.Vec3, s float32) mgl32.Vec3 {
	return p0.Add(p1.Sub(p0).Mul(s))
}

func nearlyEqualVec3(a, b mgl32.Vec3, tol float32) bool {
	for i := 0; i < 3; i++ {
		if abs32(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// quatDot is the 4D dot product of two quaternions.
func quatDot(a, b mgl32.Quat) float32 {
	return a.W*b.W + a.V.Dot(b.V)
}

// quatDeltaAngle returns the angle between a and b without forcing the
// minimal arc, matching GetQuatDeltaAngle's use for the near-180° guard
// (the quaternion stream has already been sanitized to a continuous
// minimal-arc sequence, so the dot product here is expected to stay
// non-negative along a well-formed animation).
func quatDeltaAngle(a, b mgl32.Quat) float32 {
	d := clampUnit(quatDot(a, b))
	return 2 * float32(math.Acos(float64(d)))
}

// quatAbsMinDeltaAngle returns the minimal-arc angle between a and b,
// treating q and -q as the same rotation.
func quatAbsMinDeltaAngle(a, b mgl32.Quat) float32 {
	d := quatDot(a, b)
	if d < 0 {
		d = -d
	}
	return 2 * float32(math.Acos(float64(clampUnit(d))))
}

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// nlerpQuat normalizes the componentwise lerp of a and b, the Nlerp
// metric spec.md §4.7.2 specifies for both single-channel and skin-key
// rotation pruning.
func nlerpQuat(a, b mgl32.Quat, s float32) mgl32.Quat {
	w := a.W + (b.W-a.W)*s
	v := a.V.Add(b.V.Sub(a.V).Mul(s))
	q := mgl32.Quat{W: w, V: v}
	return q.Normalize()
}

// slerpQuat spherically interpolates a to b, used only by the
// quaternion-to-Euler resampler (spec.md §4.8), which explicitly calls
// for slerp rather than the Nlerp pruning metric.
func slerpQuat(a, b mgl32.Quat, s float32) mgl32.Quat {
	return mgl32.QuatSlerp(a, b, s)
}

// negateQuat forces minimal-arc interpolation between spline tangent
// endpoints (spec.md §4.7.1's cubic-spline tessellation step).
func negateQuat(q mgl32.Quat) mgl32.Quat {
	return mgl32.Quat{W: -q.W, V: q.V.Mul(-1)}
}
