// Package xform holds the derived entities built during conversion
// (spec.md §3 "Derived core entities"): per-node animation/pass-use state,
// per-skin USD joint ordering, per-primitive compacted vertex arrays, and
// per-animation time-range/animated-node bookkeeping. These are plain data
// the builder packages (meshbuild, skinbuild, animkey, convert) populate
// and the orchestrator consumes; they own their own memory and never alias
// accessor-cache buffers.
package xform

import "github.com/go-gl/mathgl/mgl32"

// NodeInfo carries per-node animation and pass-use bookkeeping computed
// once up front so the rigid and skinned orchestrator passes don't
// recompute it per pass.
type NodeInfo struct {
	Node int

	IsAnimated bool
	// ReattachedSkins lists skin indices whose meshes, originally parented
	// under this node, are re-anchored under their skeleton root instead
	// (spec.md §4.10 "skinned pass").
	ReattachedSkins []int

	WorldDeterminantNegative bool
}

// SkinInfo is the per-used-skin derived entity (spec.md §3, §4.6).
type SkinInfo struct {
	SkinIndex int

	// Root is the glTF node index chosen as the USD skeleton root.
	Root int

	// UsedNodes is the tree-ordered (pre-order-like) set of glTF node
	// indices that make up the USD joint list, root-exclusive.
	UsedNodes []int

	// JointNames[i] is the USD joint path name for UsedNodes[i], e.g.
	// "n3/n7/n12".
	JointNames []string

	// BindMatrices[i] / RestMatrices[i] correspond to UsedNodes[i].
	BindMatrices []mgl32.Mat4
	RestMatrices []mgl32.Mat4

	// GltfJointToUSD maps a glTF joint index (a position in the skin's
	// joints array, as vertex JOINTS_n attributes use) to its position in
	// UsedNodes (i.e. the USD joint index), for vertex-influence remap.
	GltfJointToUSD map[int]int

	// Rigid reports whether every vertex weighted onto this skin
	// references exactly one joint (spec.md §4.6 "effectively rigid").
	Rigid bool
}

// PrimInfo is the per-primitive derived entity (spec.md §3, §4.5): dense,
// compacted attribute arrays in the post-compaction vertex index space.
type PrimInfo struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4 // xyz = direction, w = handedness
	// UVs[set][vertex] holds the per-texcoord-set UV array, V already
	// flipped to 1-V for USD's bottom-left texture origin.
	UVs [][]mgl32.Vec2
	// Colors is nil when vertex-color emission was suppressed (near-white
	// detection, spec.md §4.5 step 3).
	Colors [][4]float32

	// JointIndices/JointWeights are up to 4 raw (unnormalized) influences
	// per vertex, in original glTF joint-index space; skinbuild normalizes
	// and remaps them into USD joint space.
	JointIndices [][4]uint32
	JointWeights [][4]float32

	// Triangles is the flattened (N*3) index list into the compacted
	// vertex arrays above.
	Triangles []uint32

	// OldToNew maps an original glTF vertex index to its compacted index,
	// or -1 if dropped as unreferenced.
	OldToNew []int32

	MaterialIndex int
}

// AnimInfo is the per-selected-animation derived entity (spec.md §3,
// §4.7): the overall time range plus which nodes are actually animated,
// propagated to descendants that need to know their ancestor animates
// (e.g. for reverse-winding detection).
type AnimInfo struct {
	AnimationIndex int
	StartTime      float32
	EndTime        float32
	AnimatedNodes  map[int]bool
}
