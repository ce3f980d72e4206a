package animkey

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
)

func TestConvertStepToLinearInsertsCloseSecondKey(t *testing.T) {
	tol := DefaultTolerances()
	times := []float32{0, 1, 2}
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	outTimes, outPoints := ConvertVec3ToLinear(gltfasset.InterpStep, times, points, tol, TranslationShouldPrune(tol))
	if len(outTimes) != 6 {
		t.Fatalf("len(outTimes) = %d, want 6", len(outTimes))
	}
	if outTimes[1] <= outTimes[0] || outTimes[1]-outTimes[0] > tol.DtMin {
		t.Errorf("second key dt = %f, want within (0, %f]", outTimes[1]-outTimes[0], tol.DtMin)
	}
	if outPoints[0] != points[0] || outPoints[1] != points[1] {
		t.Errorf("step values = %v,%v want %v,%v", outPoints[0], outPoints[1], points[0], points[1])
	}
}

func TestConvertLinearIsUnchanged(t *testing.T) {
	tol := DefaultTolerances()
	times := []float32{0, 1}
	points := []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}
	outTimes, outPoints := ConvertVec3ToLinear(gltfasset.InterpLinear, times, points, tol, TranslationShouldPrune(tol))
	if len(outTimes) != 2 || outPoints[1] != points[1] {
		t.Errorf("linear passthrough changed data: %v %v", outTimes, outPoints)
	}
}

func TestPruneVec3DropsCollinearInteriorKeys(t *testing.T) {
	tol := DefaultTolerances()
	times := []float32{0, 1, 2, 3}
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	outTimes, outPoints := PruneVec3(times, points, tol, TranslationShouldPrune(tol))
	if len(outTimes) != 2 {
		t.Fatalf("pruned length = %d, want 2 (collinear run collapses)", len(outTimes))
	}
	if outTimes[0] != 0 || outTimes[1] != 3 {
		t.Errorf("pruned times = %v, want [0 3]", outTimes)
	}
	if outPoints[1] != points[3] {
		t.Errorf("pruned final point = %v, want %v", outPoints[1], points[3])
	}
}

func TestPruneVec3KeepsDiscontinuity(t *testing.T) {
	tol := DefaultTolerances()
	times := []float32{0, 1, 2}
	points := []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}, {0, 0, 0}}
	outTimes, _ := PruneVec3(times, points, tol, TranslationShouldPrune(tol))
	if len(outTimes) != 3 {
		t.Errorf("pruned length = %d, want 3 (middle key is not reproducible by lerp)", len(outTimes))
	}
}

func TestIsPrunedConstantVec3(t *testing.T) {
	if !IsPrunedConstantVec3([]float32{0}, []mgl32.Vec3{{1, 2, 3}}, 1e-6) {
		t.Error("single key should be pruned-constant")
	}
	if !IsPrunedConstantVec3([]float32{0, 1}, []mgl32.Vec3{{1, 2, 3}, {1, 2, 3}}, 1e-6) {
		t.Error("two identical keys should be pruned-constant")
	}
	if IsPrunedConstantVec3([]float32{0, 1}, []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}}, 1e-6) {
		t.Error("two far-apart keys should not be pruned-constant")
	}
}

func TestGenerateSkinVec3KeysMergesDesynchronizedTimes(t *testing.T) {
	curves := []JointCurve[mgl32.Vec3]{
		{Times: []float32{0, 1}, Points: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}},
		{Times: []float32{0, 0.5, 1}, Points: []mgl32.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}}},
	}
	times, keys := GenerateSkinVec3Keys(curves, DefaultTolerances().DtMin)
	want := []float32{0, 0.5, 1}
	if len(times) != len(want) {
		t.Fatalf("merged key count = %d, want %d (times=%v)", len(times), len(want), times)
	}
	for i, w := range want {
		if abs32(times[i]-w) > 1e-5 {
			t.Errorf("times[%d] = %f, want %f", i, times[i], w)
		}
	}
	// At t=0.5 the first joint should have interpolated halfway.
	if abs32(keys[1][0][0]-0.5) > 1e-4 {
		t.Errorf("joint 0 at t=0.5 = %v, want x~0.5", keys[1][0])
	}
}

func TestQuatToEulerRoundTrip(t *testing.T) {
	q := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0}).Normalize()
	e := QuatToEuler(q)
	q2 := EulerToQuat(e)
	angle := quatAbsMinDeltaAngle(q, q2)
	if angle > 1e-3 {
		t.Errorf("round-trip angle error = %f, want ~0", angle)
	}
}

func TestStepEulerTowardPicksNearestWinding(t *testing.T) {
	e := mgl32.Vec3{0.1, 0, 0}
	ref := mgl32.Vec3{float32(2*math.Pi + 0.05), 0, 0}
	got := stepEulerToward(e, ref)
	if abs32(got[0]-ref[0]) > abs32(got[0]-e[0]) {
		t.Errorf("stepEulerToward(%v, %v) = %v, expected to land near ref", e, ref, got)
	}
}

func TestResampleToEulerStartsAndEndsAtInputTimes(t *testing.T) {
	times := []float32{0, 1}
	quats := []mgl32.Quat{
		mgl32.QuatIdent(),
		mgl32.QuatRotate(1.2, mgl32.Vec3{0, 1, 0}).Normalize(),
	}
	outTimes, outEulers := ResampleToEuler(times, quats, 0.01, 1.0/300.0)
	if outTimes[0] != 0 {
		t.Errorf("first time = %f, want 0", outTimes[0])
	}
	if outTimes[len(outTimes)-1] != 1 {
		t.Errorf("last time = %f, want 1", outTimes[len(outTimes)-1])
	}
	if len(outEulers) != len(outTimes) {
		t.Errorf("euler/time length mismatch: %d vs %d", len(outEulers), len(outTimes))
	}
}
