package animkey

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// JointCurve is one joint's already-LINEAR-normalized time/value curve,
// as produced by ConvertVec3ToLinear/ConvertQuatToLinear.
type JointCurve[T any] struct {
	Times  []float32
	Points []T
}

// GenerateSkinVec3Keys performs the merge-walk over desynchronized joint
// curves (spec.md §4.7.3): at each step it finds the smallest next time
// among all joints, evaluates every joint at that time by linear
// interpolation between its own bracketing keys (holding the nearest
// endpoint value outside its own time range), and emits one multi-joint
// key. Used for translation and scale skin channels.
func GenerateSkinVec3Keys(curves []JointCurve[mgl32.Vec3], dtMin float32) (times []float32, keys [][]mgl32.Vec3) {
	jointCount := len(curves)
	if jointCount == 0 {
		return nil, nil
	}
	srcIts := make([]int, jointCount)
	for i := range srcIts {
		srcIts[i] = -1
	}
	for {
		t := float32(math.MaxFloat32)
		found := false
		for j := 0; j < jointCount; j++ {
			next := srcIts[j] + 1
			if next < len(curves[j].Times) {
				if curves[j].Times[next] < t {
					t = curves[j].Times[next]
				}
				found = true
			}
		}
		if !found {
			break
		}

		key := make([]mgl32.Vec3, jointCount)
		for j := 0; j < jointCount; j++ {
			curve := curves[j]
			i0 := findNextTimeBefore(curve.Times, srcIts[j], t)
			srcIts[j] = i0
			i1 := i0 + 1
			switch {
			case i0 < 0:
				key[j] = curve.Points[i1]
			case i1 >= len(curve.Times):
				key[j] = curve.Points[i0]
			default:
				t0, t1 := curve.Times[i0], curve.Times[i1]
				dt := t1 - t0
				s := float32(0)
				if dt >= dtMin {
					s = (t - t0) / dt
				}
				key[j] = lerpVec3(curve.Points[i0], curve.Points[i1], s)
			}
		}
		times = append(times, t)
		keys = append(keys, key)
	}
	return times, keys
}

// GenerateSkinQuatKeys is the rotation-channel counterpart of
// GenerateSkinVec3Keys, interpolating with Nlerp to match the bracketing
// metric used everywhere else in this package.
func GenerateSkinQuatKeys(curves []JointCurve[mgl32.Quat], dtMin float32) (times []float32, keys [][]mgl32.Quat) {
	jointCount := len(curves)
	if jointCount == 0 {
		return nil, nil
	}
	srcIts := make([]int, jointCount)
	for i := range srcIts {
		srcIts[i] = -1
	}
	for {
		t := float32(math.MaxFloat32)
		found := false
		for j := 0; j < jointCount; j++ {
			next := srcIts[j] + 1
			if next < len(curves[j].Times) {
				if curves[j].Times[next] < t {
					t = curves[j].Times[next]
				}
				found = true
			}
		}
		if !found {
			break
		}

		key := make([]mgl32.Quat, jointCount)
		for j := 0; j < jointCount; j++ {
			curve := curves[j]
			i0 := findNextTimeBefore(curve.Times, srcIts[j], t)
			srcIts[j] = i0
			i1 := i0 + 1
			switch {
			case i0 < 0:
				key[j] = curve.Points[i1]
			case i1 >= len(curve.Times):
				key[j] = curve.Points[i0]
			default:
				t0, t1 := curve.Times[i0], curve.Times[i1]
				dt := t1 - t0
				s := float32(0)
				if dt >= dtMin {
					s = (t - t0) / dt
				}
				key[j] = nlerpQuat(curve.Points[i0], curve.Points[i1], s)
			}
		}
		times = append(times, t)
		keys = append(keys, key)
	}
	return times, keys
}

// findNextTimeBefore returns the largest index i1 such that times[i1] <= t,
// starting the search at start+1 (mirroring the original's incremental
// cursor so the merge-walk stays O(n) per joint overall).
func findNextTimeBefore(times []float32, start int, t float32) int {
	i1 := start + 1
	for i1 < len(times) && times[i1] <= t {
		i1++
	}
	return i1 - 1
}

// PruneSkinVec3Keys applies the run-based pruner to multi-joint keys: a
// run may be pruned only when the metric holds for every joint
// simultaneously (spec.md §4.7.2 "Multi-joint skin keys").
func PruneSkinVec3Keys(times []float32, keys [][]mgl32.Vec3, tol Tolerances, shouldPrune func(p0, p1, p2 mgl32.Vec3, s float32) bool) ([]float32, [][]mgl32.Vec3) {
	n := len(times)
	if n <= 1 {
		return times, keys
	}
	keep := []int{0}
	iBegin := 0
	for iEnd := 2; iEnd < n; iEnd++ {
		tBegin, tEnd := times[iBegin], times[iEnd]
		dt := tEnd - tBegin
		prune := false
		if dt > tol.DtMin {
			prune = true
			recipDt := 1 / dt
		interior:
			for i := iBegin + 1; i != iEnd; i++ {
				s := (times[i] - tBegin) * recipDt
				for j := range keys[i] {
					if !shouldPrune(keys[iBegin][j], keys[i][j], keys[iEnd][j], s) {
						prune = false
						break interior
					}
				}
			}
		}
		if !prune {
			iBegin = iEnd - 1
			keep = append(keep, iBegin)
		}
	}
	keep = append(keep, n-1)
	outTimes := make([]float32, len(keep))
	outKeys := make([][]mgl32.Vec3, len(keep))
	for i, idx := range keep {
		outTimes[i] = times[idx]
		outKeys[i] = keys[idx]
	}
	return outTimes, outKeys
}

// PruneSkinQuatKeys is the rotation counterpart of PruneSkinVec3Keys.
func PruneSkinQuatKeys(times []float32, keys [][]mgl32.Quat, tol Tolerances) ([]float32, [][]mgl32.Quat) {
	n := len(times)
	if n <= 1 {
		return times, keys
	}
	shouldPrune := shouldPruneQuat(tol)
	keep := []int{0}
	iBegin := 0
	for iEnd := 2; iEnd < n; iEnd++ {
		tBegin, tEnd := times[iBegin], times[iEnd]
		dt := tEnd - tBegin
		prune := false
		if dt > tol.DtMin {
			prune = true
			recipDt := 1 / dt
		interior:
			for i := iBegin + 1; i != iEnd; i++ {
				s := (times[i] - tBegin) * recipDt
				for j := range keys[i] {
					if !shouldPrune(keys[iBegin][j], keys[i][j], keys[iEnd][j], s) {
						prune = false
						break interior
					}
				}
			}
		}
		if !prune {
			iBegin = iEnd - 1
			keep = append(keep, iBegin)
		}
	}
	keep = append(keep, n-1)
	outTimes := make([]float32, len(keep))
	outKeys := make([][]mgl32.Quat, len(keep))
	for i, idx := range keep {
		outTimes[i] = times[idx]
		outKeys[i] = keys[idx]
	}
	return outTimes, outKeys
}

// NormalizeRootScale implements the optional scale-normalization step
// (spec.md §4.7.3 "Scale normalization"): divides every root scale
// sample by the first frame's value and returns that first-frame scale
// so the caller can fold it into the skeleton-root transform instead.
func NormalizeRootScale(rootScaleTimes []float32, rootScalePoints []mgl32.Vec3) (firstFrameScale mgl32.Vec3, normalized []mgl32.Vec3) {
	if len(rootScalePoints) == 0 {
		return mgl32.Vec3{1, 1, 1}, nil
	}
	first := rootScalePoints[0]
	out := make([]mgl32.Vec3, len(rootScalePoints))
	for i, p := range rootScalePoints {
		out[i] = mgl32.Vec3{safeDiv(p[0], first[0]), safeDiv(p[1], first[1]), safeDiv(p[2], first[2])}
	}
	return first, out
}

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return a
	}
	return a / b
}
