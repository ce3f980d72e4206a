// Package usdstage defines the external USD-writing boundary (spec.md §6
// "External interfaces") that internal/convert drives: add an Xform, a
// mesh, a skeleton, a skeleton animation, or a material, then Save. A full
// USD linkage (pxr's C++ USD core) is out of scope for this module — the
// Stage interface is the seam a real binding would sit behind — but the
// in-module Writer below emits a complete, spec-shaped USDA text document,
// enough to exercise every orchestrator pass end to end.
package usdstage

import "github.com/go-gl/mathgl/mgl32"

// XformDesc describes a plain transform prim (spec.md §6 "root Xform",
// and the rigid pass's per-node Xforms under /Meshes).
type XformDesc struct {
	Matrix mgl32.Mat4
}

// MeshDesc describes one UsdGeomMesh (spec.md §6 "Meshes are UsdGeomMesh
// with subdivisionScheme=none, vertex-interpolated normals...").
type MeshDesc struct {
	Points            []mgl32.Vec3
	Normals           []mgl32.Vec3
	FaceVertexCounts  []int // always 3s; triangles only
	FaceVertexIndices []int
	UVSets            [][]mgl32.Vec2 // UVSets[set][vertex]
	Colors            [][4]float32   // nil when suppressed

	// JointIndices/JointWeights are present only for skinned meshes,
	// already normalized/remapped to USD joint space.
	JointIndices [][4]int
	JointWeights [][4]float32

	MaterialPath  string // "" when unbound
	SkeletonPath  string // "" when rigid
	DoubleSided   bool
	ReverseWound  bool
}

// SkeletonDesc describes a UsdSkelSkeleton (spec.md §4.6).
type SkeletonDesc struct {
	JointPaths     []string // slash-separated joint names, root-exclusive
	BindTransforms []mgl32.Mat4
	RestTransforms []mgl32.Mat4
}

// SkelAnimationDesc describes a UsdSkelAnimation sampled at Times (spec.md
// §4.7/§4.8): per joint, a translation/rotation/scale sample at each time.
// Rotations are quaternions and the Writer emits them as quaternions;
// internal/convert does not resample them to Euler angles.
type SkelAnimationDesc struct {
	JointPaths   []string
	Times        []float64
	Translations [][]mgl32.Vec3 // Translations[timeIdx][jointIdx]
	Rotations    [][]mgl32.Quat
	Scales       [][]mgl32.Vec3
}

// MaterialDesc describes a UsdShadeMaterial/UsdPreviewSurface pair (spec.md
// §6 "Materials live under /Materials").
type MaterialDesc struct {
	DisplayName string

	BaseColorFactor [4]float32
	BaseColorTex    string // relative texture file path, "" for none

	MetallicFactor  float32
	RoughnessFactor float32
	MetallicTex     string
	RoughnessTex    string

	NormalTex    string
	NormalScale  float32
	OcclusionTex string
	EmissiveFactor [3]float32
	EmissiveTex    string

	Opacity     float32
	AlphaCutoff float32
	Unlit       bool
	DoubleSided bool
}

// Stage is the write surface internal/convert drives. Every Add* call
// stages a prim under path; Save flushes the accumulated document.
type Stage interface {
	AddXform(path string, desc XformDesc) error
	AddMesh(path string, desc MeshDesc) error
	AddSkeleton(path string, desc SkeletonDesc) error
	AddSkelAnimation(path string, desc SkelAnimationDesc) error
	// AddMaterial stages a material and returns its prim path, for
	// MeshDesc.MaterialPath / skel binding relationships.
	AddMaterial(path string, desc MaterialDesc) (string, error)
	Save(path string) error
}
