package animkey

import "github.com/go-gl/mathgl/mgl32"

func shouldPruneTranslation(tol Tolerances) func(p0, p1, p2 mgl32.Vec3, s float32) bool {
	return func(p0, p1, p2 mgl32.Vec3, s float32) bool {
		offset01 := p1.Sub(p0)
		offset02 := p2.Sub(p0)
		dist01Sq := offset01.Dot(offset01)
		dist02Sq := offset02.Dot(offset02)
		distMaxSq := dist01Sq
		if dist02Sq > distMaxSq {
			distMaxSq = dist02Sq
		}
		proportionalTolSq := distMaxSq * tol.PruneTranslationProportionalSq
		diff := offset02.Mul(s).Sub(offset01)
		errorSq := diff.Dot(diff)
		return errorSq <= proportionalTolSq || errorSq <= tol.PruneTranslationAbsoluteSq
	}
}

func shouldPruneScale(tol Tolerances) func(p0, p1, p2 mgl32.Vec3, s float32) bool {
	return func(p0, p1, p2 mgl32.Vec3, s float32) bool {
		return nearlyEqualVec3(lerpVec3(p0, p2, s), p1, tol.PruneScaleComponent)
	}
}

func shouldPruneQuat(tol Tolerances) func(p0, p1, p2 mgl32.Quat, s float32) bool {
	const angleMax = 0.99 * 3.14159265358979323846
	return func(p0, p1, p2 mgl32.Quat, s float32) bool {
		if quatDeltaAngle(p0, p2) > angleMax {
			return false
		}
		p := nlerpQuat(p0, p2, s)
		return quatAbsMinDeltaAngle(p, p1) < tol.PruneRotationComponent
	}
}

// PruneVec3 implements the run-based key pruner (spec.md §4.7.2) for a
// translation or scale channel.
func PruneVec3(times []float32, points []mgl32.Vec3, tol Tolerances, shouldPrune func(p0, p1, p2 mgl32.Vec3, s float32) bool) ([]float32, []mgl32.Vec3) {
	n := len(times)
	if n <= 1 {
		return times, points
	}
	keep := []int{0}
	iBegin := 0
	for iEnd := 2; iEnd < n; iEnd++ {
		tBegin := times[iBegin]
		tEnd := times[iEnd]
		dt := tEnd - tBegin
		prune := false
		if dt > tol.DtMin {
			prune = true
			recipDt := 1 / dt
			for i := iBegin + 1; i != iEnd; i++ {
				s := (times[i] - tBegin) * recipDt
				if !shouldPrune(points[iBegin], points[i], points[iEnd], s) {
					prune = false
					break
				}
			}
		}
		if !prune {
			iBegin = iEnd - 1
			keep = append(keep, iBegin)
		}
	}
	keep = append(keep, n-1)
	return gatherVec3(times, points, keep)
}

// PruneQuat is the rotation-channel counterpart of PruneVec3, using the
// Nlerp error metric for both single-channel and skin-key rotation
// curves (DESIGN.md "Quaternion metric" resolution).
func PruneQuat(times []float32, points []mgl32.Quat, tol Tolerances) ([]float32, []mgl32.Quat) {
	n := len(times)
	if n <= 1 {
		return times, points
	}
	shouldPrune := shouldPruneQuat(tol)
	keep := []int{0}
	iBegin := 0
	for iEnd := 2; iEnd < n; iEnd++ {
		tBegin := times[iBegin]
		tEnd := times[iEnd]
		dt := tEnd - tBegin
		prune := false
		if dt > tol.DtMin {
			prune = true
			recipDt := 1 / dt
			for i := iBegin + 1; i != iEnd; i++ {
				s := (times[i] - tBegin) * recipDt
				if !shouldPrune(points[iBegin], points[i], points[iEnd], s) {
					prune = false
					break
				}
			}
		}
		if !prune {
			iBegin = iEnd - 1
			keep = append(keep, iBegin)
		}
	}
	keep = append(keep, n-1)
	return gatherQuat(times, points, keep)
}

func gatherVec3(times []float32, points []mgl32.Vec3, keep []int) ([]float32, []mgl32.Vec3) {
	outTimes := make([]float32, len(keep))
	outPoints := make([]mgl32.Vec3, len(keep))
	for i, idx := range keep {
		outTimes[i] = times[idx]
		outPoints[i] = points[idx]
	}
	return outTimes, outPoints
}

func gatherQuat(times []float32, points []mgl32.Quat, keep []int) ([]float32, []mgl32.Quat) {
	outTimes := make([]float32, len(keep))
	outPoints := make([]mgl32.Quat, len(keep))
	for i, idx := range keep {
		outTimes[i] = times[idx]
		outPoints[i] = points[idx]
	}
	return outTimes, outPoints
}

// IsPrunedConstantVec3 reports whether a pruned translation or scale
// sequence is effectively a single static value.
func IsPrunedConstantVec3(times []float32, points []mgl32.Vec3, tol float32) bool {
	if len(times) != 2 {
		return len(times) < 2
	}
	offset := points[1].Sub(points[0])
	return offset.Dot(offset) <= tol
}

// IsPrunedConstantQuat is the rotation-channel counterpart of
// IsPrunedConstantVec3.
func IsPrunedConstantQuat(times []float32, points []mgl32.Quat, tol Tolerances) bool {
	if len(times) != 2 {
		return len(times) < 2
	}
	return quatAbsMinDeltaAngle(points[0], points[1]) < tol.PruneRotationComponent
}

// TranslationShouldPrune and ScaleShouldPrune expose the per-channel
// metrics for callers (skinkeys.go) that need the raw predicate rather
// than a full prune pass.
func TranslationShouldPrune(tol Tolerances) func(p0, p1, p2 mgl32.Vec3, s float32) bool {
	return shouldPruneTranslation(tol)
}

func ScaleShouldPrune(tol Tolerances) func(p0, p1, p2 mgl32.Vec3, s float32) bool {
	return shouldPruneScale(tol)
}

func QuatShouldPrune(tol Tolerances) func(p0, p1, p2 mgl32.Quat, s float32) bool {
	return shouldPruneQuat(tol)
}
