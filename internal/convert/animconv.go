package convert

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gltf2usd/gltf2usd/internal/access"
	"github.com/gltf2usd/gltf2usd/internal/animkey"
	"github.com/gltf2usd/gltf2usd/internal/gltfasset"
	"github.com/gltf2usd/gltf2usd/internal/usdstage"
	"github.com/gltf2usd/gltf2usd/internal/xform"
)

// jointChannels groups a skin's per-joint translation/rotation/scale
// curves, keyed by USD joint index, before the merge-walk that combines
// them into shared skin-animation keys (spec.md §4.7.3).
type jointChannels struct {
	translation map[int]rawVec3Curve
	rotation    map[int]rawQuatCurve
	scale       map[int]rawVec3Curve
}

type rawVec3Curve struct {
	times  []float32
	points []mgl32.Vec3
}

type rawQuatCurve struct {
	times  []float32
	points []mgl32.Quat
}

func newJointChannels() *jointChannels {
	return &jointChannels{
		translation: make(map[int]rawVec3Curve),
		rotation:    make(map[int]rawQuatCurve),
		scale:       make(map[int]rawVec3Curve),
	}
}

// collectSkinChannels reads every channel of anim that targets a joint of
// info (by glTF node index, not USD joint index), converts its
// interpolation mode to LINEAR, and files it under the joint's USD index.
func collectSkinChannels(doc *gltfasset.Document, cache *access.Cache, anim *gltfasset.Animation, info *xform.SkinInfo, tol animkey.Tolerances) (*jointChannels, error) {
	usdOfNode := make(map[int]int, len(info.UsedNodes))
	for usdIdx, node := range info.UsedNodes {
		usdOfNode[node] = usdIdx
	}

	jc := newJointChannels()
	for _, ch := range anim.Channels {
		if !ch.Target.Node.Valid(len(doc.Nodes)) {
			continue
		}
		usdIdx, ok := usdOfNode[int(ch.Target.Node)]
		if !ok {
			continue
		}
		if !ch.Sampler.Valid(len(anim.Samplers)) {
			continue
		}
		sampler := anim.Samplers[ch.Sampler]

		times, err := cache.Scalar(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("convert: animation sampler input: %w", err)
		}

		switch ch.Target.Path {
		case gltfasset.PathTranslation:
			raw, err := cache.Vec3(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("convert: animation sampler output: %w", err)
			}
			pts := toVec3Slice(raw)
			lt, lp := animkey.ConvertVec3ToLinear(sampler.Interpolation, times, pts, tol, animkey.TranslationShouldPrune(tol))
			jc.translation[usdIdx] = rawVec3Curve{times: lt, points: lp}
		case gltfasset.PathScale:
			raw, err := cache.Vec3(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("convert: animation sampler output: %w", err)
			}
			pts := toVec3Slice(raw)
			lt, lp := animkey.ConvertVec3ToLinear(sampler.Interpolation, times, pts, tol, animkey.ScaleShouldPrune(tol))
			jc.scale[usdIdx] = rawVec3Curve{times: lt, points: lp}
		case gltfasset.PathRotation:
			raw, err := cache.Vec4(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("convert: animation sampler output: %w", err)
			}
			pts := toQuatSlice(raw)
			lt, lp := animkey.ConvertQuatToLinear(sampler.Interpolation, times, pts, tol)
			jc.rotation[usdIdx] = rawQuatCurve{times: lt, points: lp}
		default:
			// weights targets a mesh morph target, not a joint transform;
			// out of scope for skeletal animation conversion.
		}
	}
	return jc, nil
}

func toVec3Slice(raw [][3]float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(raw))
	for i, v := range raw {
		out[i] = mgl32.Vec3{v[0], v[1], v[2]}
	}
	return out
}

func toQuatSlice(raw [][4]float32) []mgl32.Quat {
	out := make([]mgl32.Quat, len(raw))
	for i, v := range raw {
		out[i] = mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
	}
	return out
}

// buildSkelAnimation merges jc's per-joint curves into the shared
// multi-joint key set (spec.md §4.7.3 "Skin key merge"), pruning the
// result before handing it to the USD stage. Joints with no curve of a
// given kind hold their rest value at every shared time.
func buildSkelAnimation(jointPaths []string, rest []mgl32.Mat4, jc *jointChannels, tol animkey.Tolerances, dtMin float32) usdstage.SkelAnimationDesc {
	n := len(jointPaths)

	tCurves := make([]animkey.JointCurve[mgl32.Vec3], n)
	sCurves := make([]animkey.JointCurve[mgl32.Vec3], n)
	rCurves := make([]animkey.JointCurve[mgl32.Quat], n)
	for i := 0; i < n; i++ {
		restT, restR, restS := decomposeRest(rest[i])
		if c, ok := jc.translation[i]; ok && len(c.times) > 0 {
			tCurves[i] = animkey.JointCurve[mgl32.Vec3]{Times: c.times, Points: c.points}
		} else {
			tCurves[i] = animkey.JointCurve[mgl32.Vec3]{Times: []float32{0}, Points: []mgl32.Vec3{restT}}
		}
		if c, ok := jc.scale[i]; ok && len(c.times) > 0 {
			sCurves[i] = animkey.JointCurve[mgl32.Vec3]{Times: c.times, Points: c.points}
		} else {
			sCurves[i] = animkey.JointCurve[mgl32.Vec3]{Times: []float32{0}, Points: []mgl32.Vec3{restS}}
		}
		if c, ok := jc.rotation[i]; ok && len(c.times) > 0 {
			rCurves[i] = animkey.JointCurve[mgl32.Quat]{Times: c.times, Points: c.points}
		} else {
			rCurves[i] = animkey.JointCurve[mgl32.Quat]{Times: []float32{0}, Points: []mgl32.Quat{restR}}
		}
	}

	tTimes, tKeys := animkey.GenerateSkinVec3Keys(tCurves, dtMin)
	tTimes, tKeys = animkey.PruneSkinVec3Keys(tTimes, tKeys, tol, animkey.TranslationShouldPrune(tol))

	sTimes, sKeys := animkey.GenerateSkinVec3Keys(sCurves, dtMin)
	sTimes, sKeys = animkey.PruneSkinVec3Keys(sTimes, sKeys, tol, animkey.ScaleShouldPrune(tol))

	rTimes, rKeys := animkey.GenerateSkinQuatKeys(rCurves, dtMin)
	rTimes, rKeys = animkey.PruneSkinQuatKeys(rTimes, rKeys, tol)

	times := mergeTimeSets(tTimes, sTimes, rTimes)
	desc := usdstage.SkelAnimationDesc{
		JointPaths:   jointPaths,
		Times:        toFloat64Times(times),
		Translations: make([][]mgl32.Vec3, len(times)),
		Rotations:    make([][]mgl32.Quat, len(times)),
		Scales:       make([][]mgl32.Vec3, len(times)),
	}
	for ti, t := range times {
		desc.Translations[ti] = sampleVec3At(t, tTimes, tKeys, n)
		desc.Rotations[ti] = sampleQuatAt(t, rTimes, rKeys, n)
		desc.Scales[ti] = sampleVec3At(t, sTimes, sKeys, n)
	}
	return desc
}

// decomposeRest splits a rest-pose local matrix into translation,
// rotation, and scale, assuming no shear (spec.md §3 Node SRT form is the
// only case a rest pose needs to round-trip through).
func decomposeRest(m mgl32.Mat4) (t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) {
	t = mgl32.Vec3{m[12], m[13], m[14]}
	cx := mgl32.Vec3{m[0], m[1], m[2]}
	cy := mgl32.Vec3{m[4], m[5], m[6]}
	cz := mgl32.Vec3{m[8], m[9], m[10]}
	sx, sy, sz := cx.Len(), cy.Len(), cz.Len()
	s = mgl32.Vec3{sx, sy, sz}
	if sx > 1e-12 {
		cx = cx.Mul(1 / sx)
	}
	if sy > 1e-12 {
		cy = cy.Mul(1 / sy)
	}
	if sz > 1e-12 {
		cz = cz.Mul(1 / sz)
	}
	r = mat3ColumnsToQuat(cx, cy, cz)
	return t, r, s
}

// mat3ColumnsToQuat converts an orthonormal basis (columns of a rotation
// matrix) to a quaternion via the standard trace-based construction.
func mat3ColumnsToQuat(cx, cy, cz mgl32.Vec3) mgl32.Quat {
	m00, m10, m20 := cx[0], cx[1], cx[2]
	m01, m11, m21 := cy[0], cy[1], cy[2]
	m02, m12, m22 := cz[0], cz[1], cz[2]

	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := sqrtf(trace+1) * 2
		return mgl32.Quat{
			W: s / 4,
			V: mgl32.Vec3{(m21 - m12) / s, (m02 - m20) / s, (m10 - m01) / s},
		}
	case m00 > m11 && m00 > m22:
		s := sqrtf(1+m00-m11-m22) * 2
		return mgl32.Quat{
			W: (m21 - m12) / s,
			V: mgl32.Vec3{s / 4, (m01 + m10) / s, (m02 + m20) / s},
		}
	case m11 > m22:
		s := sqrtf(1+m11-m00-m22) * 2
		return mgl32.Quat{
			W: (m02 - m20) / s,
			V: mgl32.Vec3{(m01 + m10) / s, s / 4, (m12 + m21) / s},
		}
	default:
		s := sqrtf(1+m22-m00-m11) * 2
		return mgl32.Quat{
			W: (m10 - m01) / s,
			V: mgl32.Vec3{(m02 + m20) / s, (m12 + m21) / s, s / 4},
		}
	}
}

func sqrtf(v float32) float32 {
	if v < 0 {
		v = 0
	}
	return float32(math.Sqrt(float64(v)))
}

func mergeTimeSets(sets ...[]float32) []float32 {
	seen := make(map[float32]bool)
	var out []float32
	for _, s := range sets {
		for _, t := range s {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func toFloat64Times(times []float32) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t)
	}
	return out
}

func sampleVec3At(t float32, times []float32, keys [][]mgl32.Vec3, joints int) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, joints)
	idx := nearestKeyIndex(t, times)
	if idx >= 0 && idx < len(keys) {
		copy(out, keys[idx])
	}
	return out
}

func sampleQuatAt(t float32, times []float32, keys [][]mgl32.Quat, joints int) []mgl32.Quat {
	out := make([]mgl32.Quat, joints)
	for i := range out {
		out[i] = mgl32.Quat{W: 1}
	}
	idx := nearestKeyIndex(t, times)
	if idx >= 0 && idx < len(keys) {
		copy(out, keys[idx])
	}
	return out
}

func nearestKeyIndex(t float32, times []float32) int {
	best := -1
	bestDelta := float32(1e30)
	for i, kt := range times {
		d := kt - t
		if d < 0 {
			d = -d
		}
		if d < bestDelta {
			bestDelta = d
			best = i
		}
	}
	return best
}
