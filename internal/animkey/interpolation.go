package animkey

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

const (
	sampleFps                 = 300.0
	stepMin                   = 0.1
	stepMinDt                 = 1.0 / (sampleFps * stepMin)
	animLinearToStepFraction  = 0.001
)

// ConvertVec3ToLinear rewrites a translation or scale sampler into an
// equivalent LINEAR-interpolated key sequence (spec.md §4.7.1). shouldPrune
// is the channel-specific error metric used to fit the cubic-spline
// tessellation (translation vs. scale).
func ConvertVec3ToLinear(interp gltfasset.Interpolation, times []float32, points []mgl32.Vec3, tol Tolerances, shouldPrune func(p0, p1, p2 mgl32.Vec3, s float32) bool) ([]float32, []mgl32.Vec3) {
	switch interp {
	case gltfasset.InterpLinear:
		return times, points
	case gltfasset.InterpStep:
		return stepToLinearVec3(times, points, tol)
	case gltfasset.InterpCubicSpline:
		return cubicSplineToLinearVec3(times, points, tol, shouldPrune)
	default:
		return times, points
	}
}

// ConvertQuatToLinear is the rotation-channel counterpart of
// ConvertVec3ToLinear.
func ConvertQuatToLinear(interp gltfasset.Interpolation, times []float32, points []mgl32.Quat, tol Tolerances) ([]float32, []mgl32.Quat) {
	switch interp {
	case gltfasset.InterpLinear:
		return times, points
	case gltfasset.InterpStep:
		return stepToLinearQuat(times, points, tol)
	case gltfasset.InterpCubicSpline:
		return cubicSplineToLinearQuat(times, points, tol)
	default:
		return times, points
	}
}

func stepToLinearVec3(srcTimes []float32, srcPoints []mgl32.Vec3, tol Tolerances) ([]float32, []mgl32.Vec3) {
	n := len(srcTimes)
	dstTimes := make([]float32, 2*n)
	dstPoints := make([]mgl32.Vec3, 2*n)
	for i0 := 0; i0 != n; i0++ {
		i1 := i0 + 1
		t0 := srcTimes[i0]
		t1 := t0
		p0 := srcPoints[i0]
		p1 := p0
		if i1 != n {
			t1 = srcTimes[i1]
			p1 = srcPoints[i1]
		}
		dt := t1 - t0
		dstDt := dt * animLinearToStepFraction
		if dstDt > tol.DtMin {
			dstDt = tol.DtMin
		}
		dstTimes[2*i0] = t0
		dstTimes[2*i0+1] = t0 + dstDt
		dstPoints[2*i0] = p0
		dstPoints[2*i0+1] = p1
	}
	return dstTimes, dstPoints
}

func stepToLinearQuat(srcTimes []float32, srcPoints []mgl32.Quat, tol Tolerances) ([]float32, []mgl32.Quat) {
	n := len(srcTimes)
	dstTimes := make([]float32, 2*n)
	dstPoints := make([]mgl32.Quat, 2*n)
	for i0 := 0; i0 != n; i0++ {
		i1 := i0 + 1
		t0 := srcTimes[i0]
		t1 := t0
		p0 := srcPoints[i0]
		p1 := p0
		if i1 != n {
			t1 = srcTimes[i1]
			p1 = srcPoints[i1]
		}
		dt := t1 - t0
		dstDt := dt * animLinearToStepFraction
		if dstDt > tol.DtMin {
			dstDt = tol.DtMin
		}
		dstTimes[2*i0] = t0
		dstTimes[2*i0+1] = t0 + dstDt
		dstPoints[2*i0] = p0
		dstPoints[2*i0+1] = p1
	}
	return dstTimes, dstPoints
}

// spline elements: glTF cubic-spline accessors store 3 points per key --
// in-tangent, value, out-tangent, in that order.
const (
	splineInTangent = iota
	splinePoint
	splineOutTangent
	splineElementCount
)

func evalHermiteVec3(p0, m0, p1, m1 mgl32.Vec3, t float32) mgl32.Vec3 {
	t2 := t * t
	t3 := t2 * t
	a := 2*t3 - 3*t2 + 1
	b := t3 - 2*t2 + t
	c := 3*t2 - 2*t3
	d := t3 - t2
	return p0.Mul(a).Add(m0.Mul(b)).Add(p1.Mul(c)).Add(m1.Mul(d))
}

func sampleSplineVec3(key0 []mgl32.Vec3, t0 float32, key1 []mgl32.Vec3, t1 float32, s float32) mgl32.Vec3 {
	dt := t1 - t0
	p0 := key0[splinePoint]
	p1 := key1[splinePoint]
	m0 := key0[splineOutTangent].Mul(dt)
	m1 := key1[splineInTangent].Mul(dt)
	return evalHermiteVec3(p0, m0, p1, m1, s)
}

func cubicSplineToLinearVec3(srcTimes []float32, srcSplinePoints []mgl32.Vec3, tol Tolerances, shouldPrune func(p0, p1, p2 mgl32.Vec3, s float32) bool) ([]float32, []mgl32.Vec3) {
	n := len(srcTimes)
	dstTimes := []float32{srcTimes[0]}
	dstPoints := []mgl32.Vec3{srcSplinePoints[splinePoint]}
	for i0 := 0; i0 != n-1; i0++ {
		i1 := i0 + 1
		t0 := srcTimes[i0]
		t1 := srcTimes[i1]
		key0 := srcSplinePoints[i0*splineElementCount : i0*splineElementCount+splineElementCount]
		key1 := srcSplinePoints[i1*splineElementCount : i1*splineElementCount+splineElementCount]
		addSplinePointsVec3(t0, key0, t1, key1, tol, shouldPrune, &dstTimes, &dstPoints)
	}
	dstTimes = append(dstTimes, srcTimes[n-1])
	dstPoints = append(dstPoints, srcSplinePoints[(n-1)*splineElementCount+splinePoint])
	return dstTimes, dstPoints
}

func addSplinePointsVec3(t0 float32, key0 []mgl32.Vec3, t1 float32, key1 []mgl32.Vec3, tol Tolerances, shouldPrune func(p0, p1, p2 mgl32.Vec3, s float32) bool, dstTimes *[]float32, dstPoints *[]mgl32.Vec3) {
	dt := t1 - t0
	sStep := float32(stepMin)
	if dt >= stepMinDt {
		sStep = (stepMin * stepMinDt) / dt
	}

	sBegin := float32(0)
	sEnd := sStep
	pBegin := key0[splinePoint]
	pEnd := sampleSplineVec3(key0, t0, key1, t1, sEnd)
	for {
		nextSEnd := sEnd + sStep
		if nextSEnd > 1 {
			nextSEnd = 1
		}
		nextSMid := 0.5 * (sBegin + nextSEnd)
		nextPMid := sampleSplineVec3(key0, t0, key1, t1, nextSMid)
		nextPEnd := sampleSplineVec3(key0, t0, key1, t1, nextSEnd)
		if !shouldPrune(pBegin, nextPMid, nextPEnd, 0.5) {
			*dstTimes = append(*dstTimes, lerpScalar(t0, t1, sEnd))
			*dstPoints = append(*dstPoints, pEnd)
			sBegin = sEnd
			pBegin = pEnd
		}
		sEnd = nextSEnd
		pEnd = nextPEnd
		if sEnd == 1 {
			break
		}
	}
}

func evalHermiteQuat(p0, m0, p1, m1 mgl32.Quat, t float32) mgl32.Quat {
	t2 := t * t
	t3 := t2 * t
	a := 2*t3 - 3*t2 + 1
	b := t3 - 2*t2 + t
	c := 3*t2 - 2*t3
	d := t3 - t2
	scale := func(q mgl32.Quat, f float32) mgl32.Quat { return mgl32.Quat{W: q.W * f, V: q.V.Mul(f)} }
	add := func(a, b mgl32.Quat) mgl32.Quat { return mgl32.Quat{W: a.W + b.W, V: a.V.Add(b.V)} }
	return add(add(scale(p0, a), scale(m0, b)), add(scale(p1, c), scale(m1, d)))
}

func sampleSplineQuat(key0 []mgl32.Quat, t0 float32, key1 []mgl32.Quat, t1 float32, s float32) mgl32.Quat {
	dt := t1 - t0
	p0 := key0[splinePoint]
	m0 := mgl32.Quat{W: key0[splineOutTangent].W * dt, V: key0[splineOutTangent].V.Mul(dt)}
	p1 := key1[splinePoint]
	m1 := mgl32.Quat{W: key1[splineInTangent].W * dt, V: key1[splineInTangent].V.Mul(dt)}
	if quatDot(p0, p1) < 0 {
		p1 = negateQuat(p1)
		m1 = negateQuat(m1)
	}
	return evalHermiteQuat(p0, m0, p1, m1, s)
}

func cubicSplineToLinearQuat(srcTimes []float32, srcSplinePoints []mgl32.Quat, tol Tolerances) ([]float32, []mgl32.Quat) {
	n := len(srcTimes)
	dstTimes := []float32{srcTimes[0]}
	dstPoints := []mgl32.Quat{srcSplinePoints[splinePoint]}
	shouldPrune := shouldPruneQuat(tol)
	for i0 := 0; i0 != n-1; i0++ {
		i1 := i0 + 1
		t0 := srcTimes[i0]
		t1 := srcTimes[i1]
		key0 := srcSplinePoints[i0*splineElementCount : i0*splineElementCount+splineElementCount]
		key1 := srcSplinePoints[i1*splineElementCount : i1*splineElementCount+splineElementCount]
		addSplinePointsQuat(t0, key0, t1, key1, shouldPrune, &dstTimes, &dstPoints)
	}
	dstTimes = append(dstTimes, srcTimes[n-1])
	dstPoints = append(dstPoints, srcSplinePoints[(n-1)*splineElementCount+splinePoint])
	return dstTimes, dstPoints
}

func addSplinePointsQuat(t0 float32, key0 []mgl32.Quat, t1 float32, key1 []mgl32.Quat, shouldPrune func(p0, p1, p2 mgl32.Quat, s float32) bool, dstTimes *[]float32, dstPoints *[]mgl32.Quat) {
	dt := t1 - t0
	sStep := float32(stepMin)
	if dt >= stepMinDt {
		sStep = (stepMin * stepMinDt) / dt
	}

	sBegin := float32(0)
	sEnd := sStep
	pBegin := key0[splinePoint]
	pEnd := sampleSplineQuat(key0, t0, key1, t1, sEnd)
	for {
		nextSEnd := sEnd + sStep
		if nextSEnd > 1 {
			nextSEnd = 1
		}
		nextSMid := 0.5 * (sBegin + nextSEnd)
		nextPMid := sampleSplineQuat(key0, t0, key1, t1, nextSMid)
		nextPEnd := sampleSplineQuat(key0, t0, key1, t1, nextSEnd)
		if !shouldPrune(pBegin, nextPMid, nextPEnd, 0.5) {
			*dstTimes = append(*dstTimes, lerpScalar(t0, t1, sEnd))
			*dstPoints = append(*dstPoints, pEnd)
			sBegin = sEnd
			pBegin = pEnd
		}
		sEnd = nextSEnd
		pEnd = nextPEnd
		if sEnd == 1 {
			break
		}
	}
}

func lerpScalar(a, b, s float32) float32 {
	return a + (b-a)*s
}
